package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/bracket"
	"matchplay-engine/internal/constants"
	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type TournamentService struct {
	db          *sqlx.DB
	tournaments *repository.TournamentRepository
	matches     *repository.MatchRepository
	advancer    *Advancer
	directory   *api.DirectoryClient
	notify      *api.NotifyClient
	logger      zerolog.Logger
}

func NewTournamentService(
	db *sqlx.DB,
	tournaments *repository.TournamentRepository,
	matches *repository.MatchRepository,
	advancer *Advancer,
	directory *api.DirectoryClient,
	notify *api.NotifyClient,
	logger zerolog.Logger,
) *TournamentService {
	return &TournamentService{
		db:          db,
		tournaments: tournaments,
		matches:     matches,
		advancer:    advancer,
		directory:   directory,
		notify:      notify,
		logger:      logger,
	}
}

type CreateTournamentInput struct {
	Name                string
	Format              domain.TournamentFormat
	Visibility          domain.Visibility
	ChallengeWindowSecs int64
}

func (s *TournamentService) Create(ctx context.Context, creatorID uuid.UUID, in CreateTournamentInput) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if in.Name == "" {
		return nil, fmt.Errorf("tournament name is required: %w", domain.ErrValidation)
	}
	switch in.Format {
	case "":
		in.Format = domain.SingleElimination
	case domain.SingleElimination, domain.DoubleElimination:
	default:
		return nil, fmt.Errorf("unknown format %q: %w", in.Format, domain.ErrValidation)
	}
	switch in.Visibility {
	case "":
		in.Visibility = domain.VisibilityPublic
	case domain.VisibilityPublic, domain.VisibilityPrivate:
	default:
		return nil, fmt.Errorf("unknown visibility %q: %w", in.Visibility, domain.ErrValidation)
	}
	if in.ChallengeWindowSecs == 0 {
		in.ChallengeWindowSecs = int64(constants.DefaultChallengeWindow / time.Second)
	}
	if time.Duration(in.ChallengeWindowSecs)*time.Second < constants.MinChallengeWindow {
		return nil, fmt.Errorf("challenge window below %s: %w", constants.MinChallengeWindow, domain.ErrValidation)
	}

	now := time.Now().UTC()
	t := &domain.Tournament{
		ID:                  uuid.New(),
		CreatorID:           creatorID,
		Name:                in.Name,
		Format:              in.Format,
		Visibility:          in.Visibility,
		ChallengeWindowSecs: in.ChallengeWindowSecs,
		Status:              domain.TournamentPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tournaments.Create(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tournament: %w", err)
	}

	s.logger.Info().
		Str("tournament_id", t.ID.String()).
		Str("creator_id", creatorID.String()).
		Str("format", string(t.Format)).
		Msg("tournament created")
	return t, nil
}

func (s *TournamentService) Join(ctx context.Context, tournamentID, participantID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != domain.TournamentPending {
		return fmt.Errorf("tournament %s is %s, joining is closed: %w", tournamentID, t.Status, domain.ErrStateConflict)
	}

	joined, err := s.tournaments.HasParticipant(ctx, tournamentID, participantID)
	if err != nil {
		return err
	}
	if joined {
		return fmt.Errorf("participant %s already joined: %w", participantID, domain.ErrStateConflict)
	}

	return s.tournaments.AddParticipant(ctx, s.db, &domain.TournamentParticipant{
		TournamentID:  tournamentID,
		ParticipantID: participantID,
		JoinedAt:      time.Now().UTC(),
	})
}

// Start seeds the bracket, opens the round-1 matches, and walks every bye
// straight through to the next round. One transaction covers the whole
// activation so a half-built bracket is never visible.
func (s *TournamentService) Start(ctx context.Context, tournamentID, callerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return err
	}
	if t.CreatorID != callerID {
		return fmt.Errorf("only the creator may start a tournament: %w", domain.ErrUnauthorized)
	}
	if t.Format != domain.SingleElimination {
		return fmt.Errorf("format %q is not supported yet: %w", t.Format, domain.ErrValidation)
	}

	participants, err := s.tournaments.GetParticipants(ctx, tournamentID)
	if err != nil {
		return err
	}
	if len(participants) < constants.MinTournamentPlayers {
		return fmt.Errorf("need at least %d participants, have %d: %w",
			constants.MinTournamentPlayers, len(participants), domain.ErrValidation)
	}

	ids := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		ids[i] = p.ParticipantID
	}

	bp, err := bracket.Build(ids, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return fmt.Errorf("failed to build bracket: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.tournaments.TransitionStatus(ctx, tx, tournamentID, domain.TournamentPending, domain.TournamentActive)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tournament %s already started: %w", tournamentID, domain.ErrStateConflict)
	}

	slots := make([]domain.BracketSlot, len(bp.Slots))
	seed := 0
	for i, bs := range bp.Slots {
		slots[i] = domain.BracketSlot{
			TournamentID:   tournamentID,
			Round:          bs.Round,
			SlotOrder:      bs.SlotOrder,
			MatchNumber:    bs.MatchNumber,
			Participant1ID: bs.Participant1,
			Participant2ID: bs.Participant2,
			Feeder1Match:   bs.Feeder1Match,
			Feeder2Match:   bs.Feeder2Match,
		}
		if bs.Round != 1 {
			continue
		}
		for _, p := range []*uuid.UUID{bs.Participant1, bs.Participant2} {
			if p == nil {
				continue
			}
			seed++
			if err := s.tournaments.SetSeed(ctx, tx, tournamentID, *p, seed); err != nil {
				return err
			}
		}
	}
	if err := s.tournaments.CreateSlots(ctx, tx, slots); err != nil {
		return err
	}

	deadline := time.Now().UTC().Add(t.ChallengeWindow())
	for _, bs := range bp.RoundSlots(1) {
		if bs.Bye {
			continue
		}
		matchNumber := bs.MatchNumber
		m := &domain.Match{
			Kind:           domain.TournamentMatch,
			TournamentID:   &tournamentID,
			MatchNumber:    &matchNumber,
			Participant1ID: *bs.Participant1,
			Participant2ID: *bs.Participant2,
			Status:         domain.MatchAccepted,
			Deadline:       deadline,
		}
		if err := s.matches.Create(ctx, tx, m); err != nil {
			return err
		}
	}

	// Byes resolve immediately and hand their participant to the
	// advancer before anyone plays.
	for _, bs := range bp.RoundSlots(1) {
		if !bs.Bye {
			continue
		}
		if err := s.advancer.Advance(ctx, tx, t, bs.MatchNumber, *bs.Winner); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket: %w", err)
	}

	s.logger.Info().
		Str("tournament_id", tournamentID.String()).
		Int("participants", len(participants)).
		Int("rounds", bp.Rounds).
		Msg("tournament started")

	events := make([]api.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, api.Event{
			Type:        api.EventTournamentStarted,
			RecipientID: id,
			Context:     map[string]string{"tournament_id": tournamentID.String()},
		})
	}
	s.notify.Dispatch(ctx, events...)

	return nil
}

// TournamentDetail is the read model for a tournament: bracket slots,
// matches, and directory profiles for presentation.
type TournamentDetail struct {
	Tournament   *domain.Tournament
	Participants []domain.TournamentParticipant
	Slots        []domain.BracketSlot
	Matches      []domain.Match
	Profiles     map[uuid.UUID]*api.Profile
}

func (s *TournamentService) Get(ctx context.Context, tournamentID uuid.UUID) (*TournamentDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := s.tournaments.GetParticipants(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	slots, err := s.tournaments.GetSlots(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	detail := &TournamentDetail{
		Tournament:   t,
		Participants: participants,
		Slots:        slots,
		Matches:      matches,
		Profiles:     map[uuid.UUID]*api.Profile{},
	}
	s.enrich(ctx, detail)
	return detail, nil
}

// enrich attaches directory profiles. Lookups are presentation-only, so
// failures are logged and the detail goes out without them.
func (s *TournamentService) enrich(ctx context.Context, detail *TournamentDetail) {
	if !s.directory.Configured() {
		return
	}
	for _, p := range detail.Participants {
		profile, err := s.directory.GetProfile(ctx, p.ParticipantID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("participant_id", p.ParticipantID.String()).
				Msg("directory lookup failed")
			continue
		}
		detail.Profiles[p.ParticipantID] = profile
	}
}

// matchContext is the notification payload context for a bracket match.
func matchContext(m *domain.Match) map[string]string {
	out := map[string]string{"match_id": m.ID}
	if m.TournamentID != nil {
		out["tournament_id"] = m.TournamentID.String()
	}
	if m.MatchNumber != nil {
		out["match_number"] = strconv.Itoa(*m.MatchNumber)
	}
	if m.LadderID != nil {
		out["ladder_id"] = m.LadderID.String()
	}
	return out
}

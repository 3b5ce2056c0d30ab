// internal/game/machine.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// Action is one request against a session. The set of actions is closed.
type Action interface {
	isAction()
	Name() string
}

type (
	// JoinSession seats the actor in the next free seat of a waiting session.
	JoinSession struct {
		DisplayName string
		Avatar      string
	}
	StartGame  struct{}
	PauseGame  struct{}
	ResumeGame struct{}
	CancelGame struct{}
	NextLevel  struct{}

	// RestartLevel deals the just-completed level again without rewards.
	RestartLevel struct{}

	PlayCard struct {
		CardID uuid.UUID
	}
	UseShuriken struct{}
)

func (JoinSession) isAction()  {}
func (StartGame) isAction()    {}
func (PauseGame) isAction()    {}
func (ResumeGame) isAction()   {}
func (CancelGame) isAction()   {}
func (NextLevel) isAction()    {}
func (RestartLevel) isAction() {}
func (PlayCard) isAction()     {}
func (UseShuriken) isAction()  {}

func (JoinSession) Name() string  { return "join" }
func (StartGame) Name() string    { return "start" }
func (PauseGame) Name() string    { return "pause" }
func (ResumeGame) Name() string   { return "resume" }
func (CancelGame) Name() string   { return "cancel" }
func (NextLevel) Name() string    { return "next_level" }
func (RestartLevel) Name() string { return "restart_level" }
func (PlayCard) Name() string     { return "play_card" }
func (UseShuriken) Name() string  { return "use_shuriken" }

// AdminAction maps the admin_action names onto actions.
func AdminAction(name string) (Action, error) {
	switch name {
	case "start":
		return StartGame{}, nil
	case "pause":
		return PauseGame{}, nil
	case "resume":
		return ResumeGame{}, nil
	case "cancel":
		return CancelGame{}, nil
	case "next_level":
		return NextLevel{}, nil
	case "restart_level":
		return RestartLevel{}, nil
	}
	return nil, NewError(CodeInvalidAction, fmt.Sprintf("unknown admin action %q", name))
}

// Result is what an applied action produced.
type Result struct {
	Action   string
	Status   models.SessionStatus
	Play     *PlayResult
	Shuriken *ShurikenResult
}

// Machine applies actions to session state. It holds no session state itself.
type Machine struct {
	Dealer Dealer
	Now    func() time.Time
}

// NewMachine returns a machine dealing with d and reading the wall clock.
func NewMachine(d Dealer) *Machine {
	return &Machine{Dealer: d, Now: time.Now}
}

// Apply runs one action for actor. On error the state may be partially
// modified and must be discarded by the caller.
func (m *Machine) Apply(s *State, actor uuid.UUID, action Action) (Result, error) {
	now := m.Now()
	res := Result{Action: action.Name()}

	var err error
	switch a := action.(type) {
	case JoinSession:
		err = m.join(s, actor, a, now)
	case StartGame:
		err = m.start(s, actor, now)
	case PauseGame:
		err = m.pause(s, actor, now)
	case ResumeGame:
		err = m.resume(s, actor, now)
	case CancelGame:
		err = m.cancel(s, actor, now)
	case NextLevel:
		err = m.nextLevel(s, actor, now)
	case RestartLevel:
		err = m.restartLevel(s, actor, now)
	case PlayCard:
		var pr PlayResult
		pr, err = TryPlay(s, actor, a.CardID, now)
		res.Play = &pr
	case UseShuriken:
		var sr ShurikenResult
		sr, err = RequestShuriken(s, actor, now)
		res.Shuriken = &sr
	default:
		err = NewError(CodeInvalidAction, fmt.Sprintf("unsupported action %T", action))
	}
	if err != nil {
		return Result{}, err
	}

	s.Session.Version++
	s.Session.UpdatedAt = now
	res.Status = s.Session.Status
	return res, nil
}

func requireAdmin(s *State, actor uuid.UUID) error {
	p, ok := s.Player(actor)
	if !ok {
		return ErrNotSeated
	}
	if !p.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

func invalidTransition(from models.SessionStatus, action string) error {
	return NewError(CodeInvalidTransition, fmt.Sprintf("cannot %s a session that is %s", action, from))
}

func (m *Machine) join(s *State, actor uuid.UUID, a JoinSession, now time.Time) error {
	if s.Session.Status != models.StatusWaiting {
		return invalidTransition(s.Session.Status, "join")
	}
	if _, ok := s.Player(actor); ok {
		return NewError(CodeAlreadySeated, "you are already seated")
	}
	if len(s.Players) >= s.Session.PlayerCount {
		return NewError(CodeSessionFull, "session is full")
	}

	seat := 0
	for _, p := range s.Players {
		if p.Seat > seat {
			seat = p.Seat
		}
	}
	seat++
	s.Players = append(s.Players, models.Participant{
		SessionID: s.Session.ID,
		UserID:    actor,
		Seat:      seat,
		Name:      a.DisplayName,
		Avatar:    a.Avatar,
		JoinedAt:  now,
	})
	s.record(models.HistoryPlayerJoined, actor, map[string]interface{}{"seat": seat}, now)
	return nil
}

func (m *Machine) start(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status != models.StatusWaiting {
		return invalidTransition(s.Session.Status, "start")
	}
	if len(s.Players) < s.Session.PlayerCount {
		return NewError(CodeNotEnoughPlayers, fmt.Sprintf("waiting for %d more player(s)", s.Session.PlayerCount-len(s.Players)))
	}
	started := now
	s.Session.StartedAt = &started
	s.Session.RewardedThrough = 1
	s.record(models.HistoryGameStarted, actor, nil, now)
	return m.deal(s, actor, 1, now)
}

func (m *Machine) pause(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status != models.StatusPlaying {
		return invalidTransition(s.Session.Status, "pause")
	}
	s.Session.Status = models.StatusPaused
	s.clearRequests()
	s.record(models.HistoryPaused, actor, nil, now)
	return nil
}

func (m *Machine) resume(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status != models.StatusPaused {
		return invalidTransition(s.Session.Status, "resume")
	}
	s.Session.Status = models.StatusPlaying
	s.record(models.HistoryResumed, actor, nil, now)
	return nil
}

func (m *Machine) cancel(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status.Terminal() {
		return invalidTransition(s.Session.Status, "cancel")
	}
	s.Session.Status = models.StatusCancelled
	s.clearRequests()
	s.record(models.HistoryCancelled, actor, nil, now)
	return nil
}

func (m *Machine) nextLevel(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status != models.StatusLevelComplete {
		return invalidTransition(s.Session.Status, "advance")
	}
	if s.Session.Level >= s.MaxLevel() {
		s.Session.Status = models.StatusWon
		s.clearRequests()
		s.record(models.HistoryWon, actor, nil, now)
		return nil
	}

	next := s.Session.Level + 1
	cards, err := m.Dealer.Deal(s.Session.ID, next, s.Players, now)
	if err != nil {
		return err
	}
	s.Session.Level = next
	m.grantLevelBonus(s, actor, now)
	m.install(s, actor, cards, now)
	return nil
}

func (m *Machine) restartLevel(s *State, actor uuid.UUID, now time.Time) error {
	if err := requireAdmin(s, actor); err != nil {
		return err
	}
	if s.Session.Status != models.StatusLevelComplete {
		return invalidTransition(s.Session.Status, "restart the level of")
	}
	return m.deal(s, actor, s.Session.Level, now)
}

// grantLevelBonus adds the rewards for entering the current level, once per
// level over the lifetime of the session.
func (m *Machine) grantLevelBonus(s *State, actor uuid.UUID, now time.Time) {
	level := s.Session.Level
	if level <= s.Session.RewardedThrough {
		return
	}
	s.Session.RewardedThrough = level

	lives, shurikens := LevelBonus(level)
	if lives == 0 && shurikens == 0 {
		return
	}
	livesCap := LivesMax(level, s.Session.Difficulty, s.Session.PlayerCount)
	gotLives := max(0, min(lives, livesCap-s.Session.Lives))
	gotShurikens := max(0, min(shurikens, ShurikensMax-s.Session.Shurikens))
	if gotLives == 0 && gotShurikens == 0 {
		return
	}
	s.Session.Lives += gotLives
	s.Session.Shurikens += gotShurikens
	s.record(models.HistoryBonus, actor, map[string]interface{}{
		"lives":     gotLives,
		"shurikens": gotShurikens,
	}, now)
}

func (m *Machine) deal(s *State, actor uuid.UUID, level int, now time.Time) error {
	cards, err := m.Dealer.Deal(s.Session.ID, level, s.Players, now)
	if err != nil {
		return err
	}
	s.Session.Level = level
	m.install(s, actor, cards, now)
	return nil
}

// install replaces the previous deal and puts the session back into play.
func (m *Machine) install(s *State, actor uuid.UUID, cards []*models.Card, now time.Time) {
	s.Cards = cards
	s.clearRequests()
	s.Session.Status = models.StatusPlaying
	s.record(models.HistoryLevelDealt, actor, map[string]interface{}{
		"handSize": HandSize(s.Session.Level),
	}, now)
}

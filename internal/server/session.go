package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

// session is one closed-loop exposure run driven step by step by a client.
// Steps on the same session are serialized by mu; different sessions proceed
// in parallel.
type session struct {
	mu sync.Mutex

	id        string
	ctrl      *exposure.Controller
	conv      *exposure.Convergence
	region    imaging.Region
	cycles    int
	converged bool
}

// sessionState is the JSON view of a session.
type sessionState struct {
	SessionID     string          `json:"session_id"`
	EV            float64         `json:"ev"`
	IntegralError float64         `json:"integral_error"`
	Cycles        int             `json:"cycles"`
	Streak        int             `json:"streak"`
	Converged     bool            `json:"converged"`
	Region        imaging.Region  `json:"region"`
	Params        exposure.Params `json:"params"`
}

// snapshot must be called with mu held.
func (ss *session) snapshot() sessionState {
	st := ss.ctrl.State()
	return sessionState{
		SessionID:     ss.id,
		EV:            st.EV,
		IntegralError: st.IntegralError,
		Cycles:        ss.cycles,
		Streak:        ss.conv.Streak(),
		Converged:     ss.converged,
		Region:        ss.region,
		Params:        ss.ctrl.Params(),
	}
}

func (s *Server) addSession(ctrl *exposure.Controller, cycles int, region imaging.Region) *session {
	ss := &session{
		id:     uuid.NewString(),
		ctrl:   ctrl,
		conv:   exposure.NewConvergence(cycles, ctrl.EV()),
		region: region,
	}

	s.mu.Lock()
	s.sessions[ss.id] = ss
	s.mu.Unlock()

	return ss
}

func (s *Server) getSession(id string) (*session, error) {
	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown session: %s", id)
	}
	return ss, nil
}

func (s *Server) removeSession(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", id)
	}
	delete(s.sessions, id)
	return ss, nil
}

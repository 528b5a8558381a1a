package events

import (
	"context"
	"sync"
	"time"
)

// UserState represents the state of a user's interaction with the bot.
type UserState int

const (
	StateIdle UserState = iota
	StatePending
	StateStreaming
)

// UserInteractionState holds the in-flight response state for a user. A new
// message from the same user cancels any response still streaming.
type UserInteractionState struct {
	State      UserState
	Timer      *time.Ticker
	CancelFunc context.CancelFunc
	Mutex      sync.Mutex
}

// UserManager manages the interaction state for all users.
type UserManager struct {
	users sync.Map // map[string]*UserInteractionState
}

// NewUserManager creates a new UserManager.
func NewUserManager() *UserManager {
	return &UserManager{}
}

// GetOrCreateUserState retrieves the state for a user, creating it if it doesn't exist.
func (um *UserManager) GetOrCreateUserState(userID string) *UserInteractionState {
	state, _ := um.users.LoadOrStore(userID, &UserInteractionState{})
	return state.(*UserInteractionState)
}

// interrupt cancels any in-flight response and resets the state to idle.
// Caller must hold the mutex.
func (st *UserInteractionState) interrupt() {
	if st.CancelFunc != nil {
		st.CancelFunc()
		st.CancelFunc = nil
	}
	if st.Timer != nil {
		st.Timer.Stop()
		st.Timer = nil
	}
	st.State = StateIdle
}

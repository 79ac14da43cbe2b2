package main

import (
	"sync"
)

// DialogState represents where a user is in the registration dialog.
type DialogState int

const (
	NoDialog DialogState = iota
	WaitingForExtraCount
	WaitingForDrinks
)

// UserDialogState stores one user's in-flight registration dialog.
type UserDialogState struct {
	State       DialogState
	EventName   string
	ExtraPeople int
}

// DialogManager tracks registration dialogs by telegram user id.
type DialogManager struct {
	userStates map[int64]*UserDialogState
	mu         sync.RWMutex
}

func NewDialogManager() *DialogManager {
	return &DialogManager{
		userStates: make(map[int64]*UserDialogState),
	}
}

// SetState starts or advances the dialog for a user.
func (dm *DialogManager) SetState(userID int64, state DialogState, eventName string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.userStates[userID]; !exists {
		dm.userStates[userID] = &UserDialogState{}
	}
	dm.userStates[userID].State = state
	dm.userStates[userID].EventName = eventName
}

// GetState returns the dialog state for a user.
func (dm *DialogManager) GetState(userID int64) (DialogState, string) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if state, exists := dm.userStates[userID]; exists {
		return state.State, state.EventName
	}
	return NoDialog, ""
}

// SetExtraPeople stashes the answered extra guest count mid-dialog.
func (dm *DialogManager) SetExtraPeople(userID int64, n int) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.userStates[userID]; !exists {
		dm.userStates[userID] = &UserDialogState{}
	}
	dm.userStates[userID].ExtraPeople = n
}

// GetExtraPeople returns the stashed extra guest count.
func (dm *DialogManager) GetExtraPeople(userID int64) int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if state, exists := dm.userStates[userID]; exists {
		return state.ExtraPeople
	}
	return 0
}

// ClearState ends the dialog for a user.
func (dm *DialogManager) ClearState(userID int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.userStates, userID)
}

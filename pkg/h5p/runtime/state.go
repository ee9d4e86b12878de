package runtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
)

// StateDataID is the user data id content state is saved under.
const StateDataID = "state"

// SaveState stores the current state of inst. Content that is not Stateful,
// or has nothing to save, is skipped. Failures are reported through the
// logger and OnError as well as returned.
func (r *Runtime) SaveState(ctx context.Context, inst Instance) error {
	s, ok := inst.(Stateful)
	if !ok {
		return nil
	}
	c := inst.Content()
	state := s.GetCurrentState()
	if state == nil {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return r.reportState(&StateError{
			ContentID:    c.ContentID(),
			SubContentID: c.SubContentID(),
			Op:           "serialize",
			Err:          errors.Join(ErrSerializeState, err),
		})
	}

	store := r.store()
	if store == nil {
		return r.reportState(&StateError{ContentID: c.ContentID(), SubContentID: c.SubContentID(), Op: "save", Err: ErrNoStore})
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.Save(storage.ContentScope(c.ContentID()), storage.UserDataKey(c.SubContentID(), StateDataID), data); err != nil {
		return r.reportState(&StateError{ContentID: c.ContentID(), SubContentID: c.SubContentID(), Op: "save", Err: err})
	}
	return nil
}

// LoadState returns stored state for a content id and sub-content id.
// It returns storage.ErrNotFound when nothing was saved.
func (r *Runtime) LoadState(contentID int64, subContentID string) (json.RawMessage, error) {
	store := r.store()
	if store == nil {
		return nil, ErrNoStore
	}
	data, err := store.Load(storage.ContentScope(contentID), storage.UserDataKey(subContentID, StateDataID))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ClearState deletes stored state, for example after a reset.
func (r *Runtime) ClearState(contentID int64, subContentID string) error {
	store := r.store()
	if store == nil {
		return ErrNoStore
	}
	return store.Delete(storage.ContentScope(contentID), storage.UserDataKey(subContentID, StateDataID))
}

func (r *Runtime) store() storage.Store {
	if r.cfg.Env == nil {
		return nil
	}
	return r.cfg.Env.Store
}

func (r *Runtime) reportState(err *StateError) error {
	observability.LogStateSaveError(r.logger, err.ContentID, err.SubContentID, err.Op, err.Err)
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
	return err
}

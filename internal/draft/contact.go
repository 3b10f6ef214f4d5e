package draft

import (
	"context"
	"strings"
	gosync "sync"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/model"
)

// ContactSubmitter persists contact drafts. *repository.Repository
// implements it.
type ContactSubmitter interface {
	CreateContact(ctx context.Context, fields model.ContactFields) (model.Contact, error)
	UpdateContact(ctx context.Context, id string, fields model.ContactFields) (model.Contact, error)
}

// ContactDraft is the editable state of the contact form.
type ContactDraft struct {
	Name  string
	Email string
	Phone string

	mu        gosync.Mutex
	mode      Mode
	state     State
	contactID string
}

// OpenContact starts a contact draft, copying c in edit mode.
func OpenContact(mode Mode, c *model.Contact) *ContactDraft {
	d := &ContactDraft{mode: mode, state: StateOpen}
	if mode == ModeEdit && c != nil {
		d.contactID = c.ID
		d.Name = c.Name
		d.Email = c.Email
		d.Phone = c.Phone
	}
	return d
}

// Mode returns whether the draft creates or edits.
func (d *ContactDraft) Mode() Mode {
	return d.mode
}

// ContactID returns the ID of the contact being edited.
func (d *ContactDraft) ContactID() string {
	return d.contactID
}

// State returns the current lifecycle state.
func (d *ContactDraft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Validate returns nil or a *apperrors.ValidationError.
func (d *ContactDraft) Validate() error {
	if verr := validateContact(d.Name, d.Email, d.Phone); !verr.Empty() {
		return verr
	}
	return nil
}

// Submit validates the draft and hands it to s, with the same rules as
// Draft.Submit.
func (d *ContactDraft) Submit(ctx context.Context, s ContactSubmitter) (model.Contact, error) {
	d.mu.Lock()
	switch d.state {
	case StateSubmitting:
		d.mu.Unlock()
		return model.Contact{}, ErrSubmitInFlight
	case StateClosed:
		d.mu.Unlock()
		return model.Contact{}, ErrClosed
	}
	if verr := validateContact(d.Name, d.Email, d.Phone); !verr.Empty() {
		d.mu.Unlock()
		return model.Contact{}, verr
	}

	fields := model.ContactFields{
		Name:  strings.TrimSpace(d.Name),
		Email: strings.TrimSpace(d.Email),
		Phone: strings.TrimSpace(d.Phone),
	}
	d.state = StateSubmitting
	d.mu.Unlock()

	var (
		c   model.Contact
		err error
	)
	if d.mode == ModeEdit {
		c, err = s.UpdateContact(ctx, d.contactID, fields)
	} else {
		c, err = s.CreateContact(ctx, fields)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if apperrors.IsPartialUpdate(err) {
		// The contact itself was stored.
		d.closeLocked()
		return c, err
	}
	if err != nil {
		d.state = StateOpen
		return model.Contact{}, err
	}
	d.closeLocked()
	return c, nil
}

// Cancel discards the draft.
func (d *ContactDraft) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

func (d *ContactDraft) closeLocked() {
	d.Name, d.Email, d.Phone = "", "", ""
	d.state = StateClosed
}

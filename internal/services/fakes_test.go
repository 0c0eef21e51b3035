package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/push"
	"event-rsvp-backend/internal/repository"
)

type memData struct {
	users    map[string]models.User
	rsvps    map[string]models.Rsvp
	events   map[string]models.Event
	comments []models.Comment
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[string]models.User, len(d.users)),
		rsvps:    make(map[string]models.Rsvp, len(d.rsvps)),
		events:   make(map[string]models.Event, len(d.events)),
		comments: append([]models.Comment(nil), d.comments...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.rsvps {
		c.rsvps[k] = v
	}
	for k, v := range d.events {
		c.events[k] = v
	}
	return c
}

// memStore is an in-memory repository.Store. Transactions work on a copy
// that replaces the live data only on commit.
type memStore struct {
	mu   sync.Mutex
	data *memData

	syncDeviceErr   error
	updateDeviceErr error
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		users:  map[string]models.User{},
		rsvps:  map[string]models.Rsvp{},
		events: map[string]models.Event{},
	}}
}

func (s *memStore) Users() repository.Users   { return memUsers{memView{s: s}} }
func (s *memStore) Rsvps() repository.Rsvps   { return memRsvps{memView{s: s}} }
func (s *memStore) Events() repository.Events { return memEvents{memView{s: s}} }

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(ctx, memTx{v: memView{s: s, tx: tx}}); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *memStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *memStore) addEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events[e.ID] = e
}

func (s *memStore) addRsvp(r models.Rsvp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rsvps[r.ID] = r
}

func (s *memStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.users[id]
}

func (s *memStore) rsvp(id string) models.Rsvp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.rsvps[id]
}

type memTx struct{ v memView }

func (t memTx) Users() repository.Users   { return memUsers{t.v} }
func (t memTx) Rsvps() repository.Rsvps   { return memRsvps{t.v} }
func (t memTx) Events() repository.Events { return memEvents{t.v} }

type memView struct {
	s  *memStore
	tx *memData
}

type memUsers struct{ memView }

type memRsvps struct{ memView }

type memEvents struct{ memView }

// with runs fn against the transaction copy, or the live data under lock
func (r memView) with(fn func(d *memData) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.data)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	return r.with(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == user.Email && u.DeletedAt == nil {
				return fmt.Errorf("user already exists: %w", models.ErrConflict)
			}
		}
		d.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.with(func(d *memData) error {
		u, ok := d.users[id]
		if !ok || u.DeletedAt != nil {
			return notFound("user", id)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.with(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == email && u.DeletedAt == nil {
				out = &u
				return nil
			}
		}
		return notFound("user", email)
	})
	return out, err
}

func (r memUsers) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	var out *models.User
	err := r.with(func(d *memData) error {
		u, ok := d.users[id]
		if !ok || u.DeletedAt != nil {
			return notFound("user", id)
		}
		if update.Firstname != nil {
			u.Firstname = *update.Firstname
		}
		if update.Lastname != nil {
			u.Lastname = *update.Lastname
		}
		if update.Interests != nil {
			u.Interests = *update.Interests
		}
		if update.Preferences != nil {
			u.Preferences = *update.Preferences
		}
		d.users[id] = u
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) UpdateDevice(ctx context.Context, id string, expectedRevision int64, device models.Device) (*models.User, error) {
	if r.s.updateDeviceErr != nil {
		return nil, r.s.updateDeviceErr
	}
	var out *models.User
	err := r.with(func(d *memData) error {
		u, ok := d.users[id]
		if !ok || u.DeletedAt != nil {
			return notFound("user", id)
		}
		if u.DeviceRevision != expectedRevision {
			return fmt.Errorf("user %s: %w", id, models.ErrConflict)
		}
		u.Device = device
		u.DeviceRevision++
		d.users[id] = u
		out = &u
		return nil
	})
	return out, err
}

func (r memRsvps) SyncDevice(ctx context.Context, userID string, device models.Device) (int64, error) {
	if r.s.syncDeviceErr != nil {
		return 0, r.s.syncDeviceErr
	}
	var n int64
	err := r.with(func(d *memData) error {
		for id, rsvp := range d.rsvps {
			if rsvp.UserID != userID || rsvp.DeletedAt != nil || rsvp.Device == device {
				continue
			}
			rsvp.Device = device
			d.rsvps[id] = rsvp
			n++
		}
		return nil
	})
	return n, err
}

func (r memRsvps) ListDivergentOwners(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.with(func(d *memData) error {
		seen := map[string]bool{}
		for _, rsvp := range d.rsvps {
			u, ok := d.users[rsvp.UserID]
			if !ok || rsvp.DeletedAt != nil || rsvp.Device == u.Device || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			ids = append(ids, u.ID)
		}
		return nil
	})
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, err
}

func (r memRsvps) listRsvps(keep func(models.Rsvp) bool) ([]*models.Rsvp, error) {
	out := []*models.Rsvp{}
	err := r.with(func(d *memData) error {
		for _, rsvp := range d.rsvps {
			if rsvp.DeletedAt == nil && keep(rsvp) {
				rsvp := rsvp
				out = append(out, &rsvp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memRsvps) ListByUser(ctx context.Context, userID string) ([]*models.Rsvp, error) {
	return r.listRsvps(func(rsvp models.Rsvp) bool { return rsvp.UserID == userID })
}

func (r memRsvps) ListByEvent(ctx context.Context, eventID string) ([]*models.Rsvp, error) {
	return r.listRsvps(func(rsvp models.Rsvp) bool { return rsvp.EventID == eventID })
}

func (r memRsvps) ListNotifiable(ctx context.Context, eventID string, category models.Category) ([]*models.Rsvp, error) {
	return r.listRsvps(func(rsvp models.Rsvp) bool {
		return rsvp.EventID == eventID && rsvp.Device.Deliverable() && rsvp.Preferences.Wants(category)
	})
}

func (r memRsvps) UpdatePreferences(ctx context.Context, id string, update models.PreferencesUpdate) (*models.Rsvp, error) {
	var out *models.Rsvp
	err := r.with(func(d *memData) error {
		rsvp, ok := d.rsvps[id]
		if !ok || rsvp.DeletedAt != nil {
			return notFound("rsvp", id)
		}
		if update.NotifyOnAnnouncement != nil {
			rsvp.Preferences.NotifyOnAnnouncement = *update.NotifyOnAnnouncement
		}
		if update.NotifyOnComment != nil {
			rsvp.Preferences.NotifyOnComment = *update.NotifyOnComment
		}
		if update.NotifyOnUpdates != nil {
			rsvp.Preferences.NotifyOnUpdates = *update.NotifyOnUpdates
		}
		d.rsvps[id] = rsvp
		out = &rsvp
		return nil
	})
	return out, err
}

func (r memRsvps) SoftDelete(ctx context.Context, id string) error {
	return r.with(func(d *memData) error {
		rsvp, ok := d.rsvps[id]
		if !ok || rsvp.DeletedAt != nil {
			return notFound("rsvp", id)
		}
		now := time.Now()
		rsvp.DeletedAt = &now
		d.rsvps[id] = rsvp
		return nil
	})
}

func (r memRsvps) Create(ctx context.Context, rsvp *models.Rsvp) error {
	return r.with(func(d *memData) error {
		for _, existing := range d.rsvps {
			if existing.UserID == rsvp.UserID && existing.EventID == rsvp.EventID && existing.DeletedAt == nil {
				return fmt.Errorf("rsvp already exists: %w", models.ErrConflict)
			}
		}
		d.rsvps[rsvp.ID] = *rsvp
		return nil
	})
}

func (r memRsvps) GetByID(ctx context.Context, id string) (*models.Rsvp, error) {
	var out *models.Rsvp
	err := r.with(func(d *memData) error {
		rsvp, ok := d.rsvps[id]
		if !ok || rsvp.DeletedAt != nil {
			return notFound("rsvp", id)
		}
		out = &rsvp
		return nil
	})
	return out, err
}

func (r memRsvps) GetByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rsvp, error) {
	list, err := r.listRsvps(func(rsvp models.Rsvp) bool {
		return rsvp.UserID == userID && rsvp.EventID == eventID
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound("rsvp", userID+"/"+eventID)
	}
	return list[0], nil
}

func (r memEvents) Create(ctx context.Context, event *models.Event) error {
	return r.with(func(d *memData) error {
		d.events[event.ID] = *event
		return nil
	})
}

func (r memEvents) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var out *models.Event
	err := r.with(func(d *memData) error {
		e, ok := d.events[id]
		if !ok || e.DeletedAt != nil {
			return notFound("event", id)
		}
		out = &e
		return nil
	})
	return out, err
}

func (r memEvents) ListByCreator(ctx context.Context, creatorID string) ([]*models.Event, error) {
	out := []*models.Event{}
	err := r.with(func(d *memData) error {
		for _, e := range d.events {
			if e.CreatorID == creatorID && e.DeletedAt == nil {
				e := e
				out = append(out, &e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memEvents) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
	var out *models.Event
	err := r.with(func(d *memData) error {
		e, ok := d.events[id]
		if !ok || e.DeletedAt != nil {
			return notFound("event", id)
		}
		if update.Title != nil {
			e.Title = *update.Title
		}
		if update.Description != nil {
			e.Description = *update.Description
		}
		if update.ImageURL != nil {
			e.ImageURL = *update.ImageURL
		}
		if update.Address != nil {
			e.Address = *update.Address
		}
		if update.StartsAt != nil {
			e.StartsAt = update.StartsAt
		}
		if update.InterestTags != nil {
			e.InterestTags = *update.InterestTags
		}
		d.events[id] = e
		out = &e
		return nil
	})
	return out, err
}

func (r memEvents) AddComment(ctx context.Context, comment *models.Comment) error {
	return r.with(func(d *memData) error {
		if e, ok := d.events[comment.EventID]; !ok || e.DeletedAt != nil {
			return notFound("event", comment.EventID)
		}
		d.comments = append(d.comments, *comment)
		return nil
	})
}

func (r memEvents) ListComments(ctx context.Context, eventID string, kind models.CommentKind) ([]*models.Comment, error) {
	out := []*models.Comment{}
	err := r.with(func(d *memData) error {
		for _, c := range d.comments {
			if c.EventID == eventID && c.Kind == kind {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

// fakeProvider is an in-memory push.Provider that tracks live endpoints
type fakeProvider struct {
	mu      sync.Mutex
	next    int
	live    map[string]string
	creates int
	deletes int
	sent    map[string][]push.Message

	createErr error
	deleteErr error
	sendErr   map[string]error
	delay     time.Duration
	// rejectToken fails the local token check for this token
	rejectToken string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		live:    map[string]string{},
		sent:    map[string][]push.Message{},
		sendErr: map[string]error{},
	}
}

func (p *fakeProvider) CreateEndpoint(ctx context.Context, token string, platform models.Platform, ownerID string) (string, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.creates++
	if p.createErr != nil {
		return "", p.createErr
	}
	p.next++
	handle := fmt.Sprintf("h%d", p.next)
	p.live[handle] = ownerID
	return handle, nil
}

func (p *fakeProvider) CheckToken(platform models.Platform, token string) error {
	if p.rejectToken != "" && token == p.rejectToken {
		return fmt.Errorf("%w: malformed token", models.ErrInvalidInput)
	}
	return nil
}

func (p *fakeProvider) RotateEndpointToken(ctx context.Context, handle, token string) error {
	return nil
}

func (p *fakeProvider) DeleteEndpoint(ctx context.Context, handle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deletes++
	if p.deleteErr != nil {
		return p.deleteErr
	}
	delete(p.live, handle)
	return nil
}

func (p *fakeProvider) Send(ctx context.Context, handle string, msg push.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.sendErr[handle]; err != nil {
		return err
	}
	p.sent[handle] = append(p.sent[handle], msg)
	return nil
}

func (p *fakeProvider) calls() (creates, deletes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates, p.deletes
}

func (p *fakeProvider) liveHandles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.live))
	for h := range p.live {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func (p *fakeProvider) sentTo(handle string) []push.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]push.Message(nil), p.sent[handle]...)
}

func (p *fakeProvider) totalSent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, msgs := range p.sent {
		n += len(msgs)
	}
	return n
}

// recordingPublisher captures published changes
type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.Change
}

func (p *recordingPublisher) Publish(ctx context.Context, change models.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) published() []models.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Change(nil), p.changes...)
}

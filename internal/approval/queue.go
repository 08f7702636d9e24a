// Package approval holds generated applications until a human approves,
// rejects or asks for changes. Approving sends the email.
package approval

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobtriage/internal/types"
)

// Sender delivers an approved email and returns the transport message ID
type Sender interface {
	Send(ctx context.Context, msg types.OutgoingEmail) (string, error)
}

// Notifier is told about every newly queued submission
type Notifier interface {
	Notify(ctx context.Context, sub types.Submission) error
}

// Actions, used in TransitionError
const (
	ActionApprove        = "approve"
	ActionReject         = "reject"
	ActionRequestChanges = "request changes for"
	ActionRegenerate     = "regenerate"
	ActionEdit           = "edit"
)

// approved and rejected are terminal
var allowedFrom = map[string][]types.Status{
	ActionApprove:        {types.StatusPending, types.StatusChangesRequested},
	ActionReject:         {types.StatusPending, types.StatusChangesRequested},
	ActionRequestChanges: {types.StatusPending, types.StatusChangesRequested},
	ActionRegenerate:     {types.StatusPending, types.StatusChangesRequested},
	ActionEdit:           {types.StatusPending, types.StatusChangesRequested},
}

// CanTransition reports whether action is allowed from status.
func CanTransition(action string, from types.Status) bool {
	for _, s := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}

// Edits are reviewer overrides applied when approving. Empty fields keep the
// stored value.
type Edits struct {
	To      string `json:"to,omitempty"`
	CC      string `json:"cc,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

func (e Edits) apply(sub *types.Submission) {
	if v := strings.TrimSpace(e.To); v != "" {
		sub.EmailTo = v
	}
	if v := strings.TrimSpace(e.CC); v != "" {
		sub.EmailCC = v
	}
	if v := strings.TrimSpace(e.Subject); v != "" {
		sub.EmailSubject = v
	}
	if strings.TrimSpace(e.Body) != "" {
		sub.EmailBody = e.Body
	}
}

// Queue serialises every operation on the store behind one mutex. The mutex
// is not held while an approved email is being sent.
type Queue struct {
	mu    sync.Mutex
	store Store
	// sending holds IDs whose email is in flight
	sending map[string]bool
	// unrecorded holds approved submissions whose email went out but whose
	// new state could not be saved; a retried Approve saves without resending
	unrecorded map[string]types.Submission

	sender   Sender
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Queue
type Option func(*Queue)

// WithNotifier sets the post-commit hook run after Enqueue.
func WithNotifier(n Notifier) Option {
	return func(q *Queue) { q.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates a queue over store. sender may be nil, in which case
// Approve fails with a SendError.
func NewQueue(store Store, sender Sender, opts ...Option) *Queue {
	q := &Queue{
		store:      store,
		sending:    make(map[string]bool),
		unrecorded: make(map[string]types.Submission),
		sender:     sender,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) load(ctx context.Context) ([]types.Submission, error) {
	subs, err := q.store.Load(ctx)
	if err != nil {
		return nil, &StoreError{Op: "load", Cause: err}
	}
	return subs, nil
}

func (q *Queue) save(ctx context.Context, subs []types.Submission) error {
	if err := q.store.Save(ctx, subs); err != nil {
		return &StoreError{Op: "save", Cause: err}
	}
	return nil
}

func indexOf(subs []types.Submission, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

// Enqueue stores sub as a new pending submission and returns the stored copy.
// The notifier runs only after the save succeeded; its errors are logged.
func (q *Queue) Enqueue(ctx context.Context, sub types.Submission) (types.Submission, error) {
	q.mu.Lock()
	subs, err := q.load(ctx)
	if err != nil {
		q.mu.Unlock()
		return types.Submission{}, err
	}

	sub.ID = q.newID()
	sub.CreatedAt = q.now().UTC()
	sub.Status = types.StatusPending
	sub.SentAt = nil
	sub.MessageID = ""

	subs = append(subs, sub)
	if err := q.save(ctx, subs); err != nil {
		q.mu.Unlock()
		return types.Submission{}, err
	}
	q.mu.Unlock()

	q.logger.Info("submission queued",
		slog.String("id", sub.ID),
		slog.String("role", sub.Parsed.Role),
		slog.String("source", string(sub.Source)),
	)

	if q.notifier != nil {
		if err := q.notifier.Notify(ctx, sub); err != nil {
			q.logger.Warn("approval notification failed",
				slog.String("id", sub.ID),
				slog.Any("error", err),
			)
		}
	}
	return sub, nil
}

// List returns submissions in queue order, filtered by status when set.
func (q *Queue) List(ctx context.Context, status types.Status) ([]types.Submission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return subs, nil
	}
	out := make([]types.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get returns one submission or a *NotFoundError.
func (q *Queue) Get(ctx context.Context, id string) (types.Submission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, err := q.load(ctx)
	if err != nil {
		return types.Submission{}, err
	}
	i := indexOf(subs, id)
	if i < 0 {
		return types.Submission{}, &NotFoundError{ID: id}
	}
	return subs[i], nil
}

// update runs fn on the submission under the lock and saves the result.
// fn returning an error leaves the store untouched.
func (q *Queue) update(ctx context.Context, id, action string, fn func(*types.Submission) error) (types.Submission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, err := q.load(ctx)
	if err != nil {
		return types.Submission{}, err
	}
	i := indexOf(subs, id)
	if i < 0 {
		return types.Submission{}, &NotFoundError{ID: id}
	}
	if err := q.checkTransition(action, subs[i]); err != nil {
		return types.Submission{}, err
	}

	next := subs[i]
	if err := fn(&next); err != nil {
		return types.Submission{}, err
	}
	subs[i] = next
	if err := q.save(ctx, subs); err != nil {
		return types.Submission{}, err
	}
	return next, nil
}

// checkTransition also refuses submissions with an email in flight or
// already sent. Callers hold q.mu.
func (q *Queue) checkTransition(action string, sub types.Submission) error {
	if q.sending[sub.ID] {
		return &InProgressError{ID: sub.ID}
	}
	if _, ok := q.unrecorded[sub.ID]; ok {
		return &TransitionError{ID: sub.ID, Action: action, From: types.StatusApproved}
	}
	if !CanTransition(action, sub.Status) {
		return &TransitionError{ID: sub.ID, Action: action, From: sub.Status}
	}
	return nil
}

// Approve applies edits, sends the email with the PDF attached and marks the
// submission approved. On a send failure the stored record is unchanged and a
// *SendError is returned. When the email went out but the new state could not
// be saved, a *RecordError is returned and a later Approve only retries the
// save.
func (q *Queue) Approve(ctx context.Context, id string, edits Edits) (types.Submission, error) {
	q.mu.Lock()
	if sent, ok := q.unrecorded[id]; ok {
		sub, err := q.record(ctx, sent)
		q.mu.Unlock()
		return sub, err
	}
	next, err := q.claim(ctx, id, edits)
	q.mu.Unlock()
	if err != nil {
		q.logger.Warn("approve failed", slog.String("id", id), slog.Any("error", err))
		return types.Submission{}, err
	}

	msgID, sendErr := q.sender.Send(ctx, types.OutgoingEmail{
		To:             next.EmailTo,
		CC:             next.EmailCC,
		Subject:        next.EmailSubject,
		Body:           next.EmailBody,
		AttachmentPath: next.PDFPath,
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.sending, id)
	if sendErr != nil {
		err := &SendError{ID: id, Message: "transport error", Cause: sendErr}
		q.logger.Warn("approve failed", slog.String("id", id), slog.Any("error", err))
		return types.Submission{}, err
	}

	sent := q.now().UTC()
	next.Status = types.StatusApproved
	next.SentAt = &sent
	next.MessageID = msgID
	return q.record(ctx, next)
}

// claim validates an approval and marks id as sending. Callers hold q.mu.
func (q *Queue) claim(ctx context.Context, id string, edits Edits) (types.Submission, error) {
	subs, err := q.load(ctx)
	if err != nil {
		return types.Submission{}, err
	}
	i := indexOf(subs, id)
	if i < 0 {
		return types.Submission{}, &NotFoundError{ID: id}
	}
	if err := q.checkTransition(ActionApprove, subs[i]); err != nil {
		return types.Submission{}, err
	}

	next := subs[i]
	edits.apply(&next)
	if strings.TrimSpace(next.EmailTo) == "" {
		return types.Submission{}, &SendError{ID: id, Message: "no recipient address"}
	}
	if q.sender == nil {
		return types.Submission{}, &SendError{ID: id, Message: "no mail transport configured"}
	}
	q.sending[id] = true
	return next, nil
}

// record saves a sent submission. On failure it is kept in q.unrecorded so
// the email is never sent twice. Callers hold q.mu.
func (q *Queue) record(ctx context.Context, sent types.Submission) (types.Submission, error) {
	subs, err := q.load(ctx)
	if err == nil {
		if i := indexOf(subs, sent.ID); i >= 0 {
			subs[i] = sent
			err = q.save(ctx, subs)
		} else {
			// deleted while the email was in flight
			q.logger.Warn("sent submission no longer queued", slog.String("id", sent.ID))
		}
	}
	if err != nil {
		q.unrecorded[sent.ID] = sent
		rerr := &RecordError{ID: sent.ID, MessageID: sent.MessageID, Cause: err}
		q.logger.Error("approved email sent but not recorded", slog.String("id", sent.ID), slog.Any("error", err))
		return types.Submission{}, rerr
	}
	delete(q.unrecorded, sent.ID)

	q.logger.Info("submission approved and sent",
		slog.String("id", sent.ID),
		slog.String("to", sent.EmailTo),
		slog.String("message_id", sent.MessageID),
	)
	return sent, nil
}

// Reject marks the submission rejected. Nothing is sent.
func (q *Queue) Reject(ctx context.Context, id string) (types.Submission, error) {
	return q.update(ctx, id, ActionReject, func(s *types.Submission) error {
		s.Status = types.StatusRejected
		return nil
	})
}

// RequestChanges records reviewer comments and parks the submission.
func (q *Queue) RequestChanges(ctx context.Context, id, comments string) (types.Submission, error) {
	return q.update(ctx, id, ActionRequestChanges, func(s *types.Submission) error {
		s.Status = types.StatusChangesRequested
		s.Comments = strings.TrimSpace(comments)
		return nil
	})
}

// Regenerate lets fn replace the submission content and returns it to
// pending. ID, CreatedAt and Source are preserved whatever fn does.
func (q *Queue) Regenerate(ctx context.Context, id string, fn func(*types.Submission) error) (types.Submission, error) {
	return q.update(ctx, id, ActionRegenerate, func(s *types.Submission) error {
		keepID, keepCreated, keepSource := s.ID, s.CreatedAt, s.Source
		if err := fn(s); err != nil {
			return err
		}
		s.ID, s.CreatedAt, s.Source = keepID, keepCreated, keepSource
		s.Status = types.StatusPending
		s.SentAt = nil
		s.MessageID = ""
		return nil
	})
}

// UpdateEmail replaces the subject and body of an undecided submission.
func (q *Queue) UpdateEmail(ctx context.Context, id, subject, body string) (types.Submission, error) {
	return q.update(ctx, id, ActionEdit, func(s *types.Submission) error {
		if subject != "" {
			s.EmailSubject = subject
		}
		if body != "" {
			s.EmailBody = body
		}
		return nil
	})
}

// Delete removes a submission in any status.
func (q *Queue) Delete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, err := q.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(subs, id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	subs = append(subs[:i], subs[i+1:]...)
	return q.save(ctx, subs)
}

// DeleteAll empties the queue and returns how many submissions were removed.
func (q *Queue) DeleteAll(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	if err := q.save(ctx, []types.Submission{}); err != nil {
		return 0, err
	}
	return len(subs), nil
}

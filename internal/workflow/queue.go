// Package workflow implements the activity lifecycle as seen from the portal:
// reviewers decide pending items and students submit new ones.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

// Decision is a reviewer's verdict on a pending activity.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision name.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", apperr.E(apperr.KindInvalidInput, "workflow.decision", fmt.Sprintf("unknown decision %q", raw))
	}
}

// Status returns the terminal status the decision moves an activity to.
func (d Decision) Status() models.ActivityStatus {
	if d == DecisionApprove {
		return models.ActivityStatusApproved
	}
	return models.ActivityStatusRejected
}

// Decider issues the remote transition.
type Decider interface {
	Approve(ctx context.Context, sess session.Session, id string) error
	Reject(ctx context.Context, sess session.Session, id string) error
}

// PendingQueue is a reviewer's page-scoped list of pending activities. Items
// leave the queue only after the backend acknowledges the decision, and at
// most one decision per item is in flight.
type PendingQueue struct {
	mu       sync.Mutex
	items    []models.Activity
	inflight map[string]struct{}
	decider  Decider
	events   Publisher
}

// NewPendingQueue builds a queue over items. Items not in pending status are skipped.
func NewPendingQueue(decider Decider, events Publisher, items []models.Activity) *PendingQueue {
	queue := &PendingQueue{decider: decider, events: events, inflight: map[string]struct{}{}}
	for _, item := range items {
		if item.Status == "" || item.Status == models.ActivityStatusPending {
			queue.items = append(queue.items, item)
		}
	}
	return queue
}

// Items returns a snapshot of the queue.
func (q *PendingQueue) Items() []models.Activity {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Activity{}, q.items...)
}

// Len returns the number of pending items.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *PendingQueue) find(id string) (models.Activity, int) {
	for i, item := range q.items {
		if item.ID == id {
			return item, i
		}
	}
	return models.Activity{}, -1
}

// Decide sends the decision for id and removes it from the queue on success.
// On failure the queue is unchanged and nothing is retried.
func (q *PendingQueue) Decide(ctx context.Context, sess session.Session, id string, decision Decision) (models.Activity, error) {
	op := "workflow." + string(decision)
	id = strings.TrimSpace(id)

	if decision != DecisionApprove && decision != DecisionReject {
		return models.Activity{}, apperr.E(apperr.KindInvalidInput, op, fmt.Sprintf("unknown decision %q", decision))
	}
	if !models.ActivityStatusPending.CanTransition(decision.Status()) {
		return models.Activity{}, apperr.E(apperr.KindInvalidInput, op, "invalid transition")
	}

	item, err := q.claim(op, id)
	if err != nil {
		return models.Activity{}, err
	}

	switch decision {
	case DecisionApprove:
		err = q.decider.Approve(ctx, sess, id)
	case DecisionReject:
		err = q.decider.Reject(ctx, sess, id)
	}
	q.release(id, err == nil)
	if err != nil {
		return models.Activity{}, apperr.Mutation(op, err)
	}

	item.Status = decision.Status()
	if q.events != nil {
		q.events.Publish(ctx, NewEvent(EventDecided, item))
	}
	return item, nil
}

// claim marks id as being decided. An id that is unknown or already claimed is
// rejected without contacting the backend.
func (q *PendingQueue) claim(op, id string) (models.Activity, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, idx := q.find(id)
	if idx < 0 {
		return models.Activity{}, apperr.E(apperr.KindInvalidInput, op, fmt.Sprintf("activity %q is not in the pending queue", id))
	}
	if _, busy := q.inflight[id]; busy {
		return models.Activity{}, apperr.E(apperr.KindInvalidInput, op, fmt.Sprintf("activity %q already has a decision in progress", id))
	}
	q.inflight[id] = struct{}{}
	return item, nil
}

// release ends the claim on id and drops the item when the decision was acknowledged.
func (q *PendingQueue) release(id string, acknowledged bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, id)
	if !acknowledged {
		return
	}
	if _, idx := q.find(id); idx >= 0 {
		q.items = append(q.items[:idx], q.items[idx+1:]...)
	}
}

package instruments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

type mockRepo struct {
	requests map[int64]*InstrumentRequest
	nextID   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: map[int64]*InstrumentRequest{}, nextID: 1}
}

func (m *mockRepo) List(ctx context.Context, filters shared.ListFilters) ([]InstrumentRequest, error) {
	var out []InstrumentRequest
	for _, req := range m.requests {
		if !req.Live() {
			continue
		}
		if filters.Search != "" &&
			!strings.Contains(strings.ToLower(req.Title), strings.ToLower(filters.Search)) &&
			req.Status != strings.ToLower(filters.Search) {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (InstrumentRequest, error) {
	if req, ok := m.requests[id]; ok && req.Live() {
		return *req, nil
	}
	return InstrumentRequest{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error) {
	req.ID = m.nextID
	m.nextID++
	req.CreatedAt, req.CreatedBy = stamp.At, stamp.By
	req.UpdatedAt, req.UpdatedBy = stamp.At, stamp.By
	m.requests[req.ID] = &req
	return req, nil
}

func (m *mockRepo) Update(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error) {
	existing, ok := m.requests[req.ID]
	if !ok || !existing.Live() {
		return InstrumentRequest{}, shared.ErrNotFound
	}
	existing.Title, existing.Description, existing.NeededBy = req.Title, req.Description, req.NeededBy
	existing.UpdatedAt, existing.UpdatedBy = stamp.At, stamp.By
	return *existing, nil
}

func (m *mockRepo) SetStatus(ctx context.Context, id int64, status string, stamp lifecycle.Stamp) error {
	req, ok := m.requests[id]
	if !ok || !req.Live() {
		return shared.ErrNotFound
	}
	req.Status = status
	req.UpdatedAt, req.UpdatedBy = stamp.At, stamp.By
	return nil
}

func (m *mockRepo) SoftDelete(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	req, ok := m.requests[id]
	if !ok || !req.Live() {
		return shared.ErrNotFound
	}
	at := stamp.At
	by := stamp.By
	req.Deleted, req.DeletedAt, req.DeletedBy = true, &at, &by
	return nil
}

func TestSubmitRequest(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	needed := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.SubmitRequest(context.Background(), 4, NewRequestInput{
		Title:       "  Graduate exit survey  ",
		Description: "Spring cohort",
		NeededBy:    &needed,
	})
	require.NoError(t, err)
	assert.Equal(t, "Graduate exit survey", created.Title)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, int64(4), created.RequesterID)
	assert.Equal(t, int64(4), created.CreatedBy)
}

func TestSubmitRequestRequiresTitle(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.SubmitRequest(context.Background(), 1, NewRequestInput{Title: "   "})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
}

func TestReviewRequest(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.SubmitRequest(ctx, 4, NewRequestInput{Title: "Exit survey"})
	require.NoError(t, err)

	require.NoError(t, svc.ReviewRequest(ctx, 1, created.ID, StatusApproved))
	got, err := svc.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, int64(1), got.UpdatedBy)

	// Already reviewed, a second decision is refused.
	err = svc.ReviewRequest(ctx, 1, created.ID, StatusDeclined)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestReviewRequestRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	err := svc.ReviewRequest(context.Background(), 1, 1, "maybe")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDeleteRequestHidesFromListing(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.SubmitRequest(ctx, 4, NewRequestInput{Title: "Exit survey"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRequest(ctx, 2, created.ID))

	requests, err := svc.ListRequests(ctx, shared.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, requests)

	_, err = svc.GetRequest(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	require.NotNil(t, repo.requests[created.ID].DeletedBy)
	assert.Equal(t, int64(2), *repo.requests[created.ID].DeletedBy)
}

func TestListRequestsFiltersByStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.SubmitRequest(ctx, 4, NewRequestInput{Title: "Exit survey"})
	require.NoError(t, err)
	_, err = svc.SubmitRequest(ctx, 4, NewRequestInput{Title: "Alumni poll"})
	require.NoError(t, err)
	require.NoError(t, svc.ReviewRequest(ctx, 1, first.ID, StatusApproved))

	approved, err := svc.ListRequests(ctx, shared.ListFilters{Search: StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)
}

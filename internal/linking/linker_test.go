package linking

import (
	"context"
	"errors"
	"testing"

	"finsync/internal/domain"
)

type mockLinkAPI struct {
	got *domain.AccountLinkRequest
	err error
}

func (m *mockLinkAPI) LinkAccount(ctx context.Context, req domain.AccountLinkRequest) (*domain.AccountLink, error) {
	m.got = &req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AccountLink{ID: "link_1", Provider: req.Provider, EntityData: req.EntityData}, nil
}

type mockRefresher struct {
	calls int
	err   error
}

func (m *mockRefresher) Refresh(ctx context.Context) error {
	m.calls++
	return m.err
}

func enrollment() Enrollment {
	return Enrollment{
		AccessToken: "token_abc",
		ID:          "enr_1",
		Institution: domain.Institution{ID: "chase", Name: "Chase"},
		UserID:      "usr_1",
		Signatures:  []string{"sig"},
	}
}

func TestOnSuccessPostsPayloadAndRefreshes(t *testing.T) {
	api := &mockLinkAPI{}
	accounts := &mockRefresher{}
	l := NewLinker(api, accounts, "app_test", nil)

	link, err := l.OnSuccess(context.Background(), enrollment())
	if err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}
	if link.ID != "link_1" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if api.got.Provider != ProviderTeller || api.got.ProviderID != "token_abc" {
		t.Fatalf("unexpected provider fields: %+v", api.got)
	}
	if api.got.EntityData["enrollment_id"] != "enr_1" || api.got.EntityData["institution_name"] != "Chase" {
		t.Fatalf("unexpected entity data: %v", api.got.EntityData)
	}
	if api.got.Metadata["user_id"] != "usr_1" {
		t.Fatalf("unexpected metadata: %v", api.got.Metadata)
	}
	if accounts.calls != 1 {
		t.Fatalf("expected accounts refresh, got %d", accounts.calls)
	}
}

func TestOnSuccessLinkFailureSkipsRefresh(t *testing.T) {
	api := &mockLinkAPI{err: domain.ErrNetwork}
	accounts := &mockRefresher{}
	l := NewLinker(api, accounts, "app_test", nil)

	if _, err := l.OnSuccess(context.Background(), enrollment()); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if accounts.calls != 0 {
		t.Fatalf("refresh should not run after a failed link")
	}
}

func TestOnSuccessRejectsIncompleteEnrollment(t *testing.T) {
	api := &mockLinkAPI{}
	l := NewLinker(api, &mockRefresher{}, "app_test", nil)

	e := enrollment()
	e.AccessToken = ""
	if _, err := l.OnSuccess(context.Background(), e); !errors.Is(err, ErrInvalidEnrollment) {
		t.Fatalf("expected ErrInvalidEnrollment, got %v", err)
	}
	if api.got != nil {
		t.Fatalf("incomplete enrollment must not be posted")
	}
}

func TestOnSuccessReturnsLinkWhenRefreshFails(t *testing.T) {
	l := NewLinker(&mockLinkAPI{}, &mockRefresher{err: domain.ErrSessionExpired}, "app_test", nil)

	link, err := l.OnSuccess(context.Background(), enrollment())
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if link == nil {
		t.Fatalf("link should be returned even when the refresh fails")
	}
}

func TestApplicationID(t *testing.T) {
	l := NewLinker(&mockLinkAPI{}, &mockRefresher{}, "app_123", nil)
	if id, err := l.ApplicationID(); err != nil || id != "app_123" {
		t.Fatalf("unexpected application id %q, %v", id, err)
	}

	l = NewLinker(&mockLinkAPI{}, &mockRefresher{}, "", nil)
	if _, err := l.ApplicationID(); !errors.Is(err, ErrNoApplicationID) {
		t.Fatalf("expected ErrNoApplicationID, got %v", err)
	}
}

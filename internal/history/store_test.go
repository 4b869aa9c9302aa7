package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// setupTestStore creates a temporary history store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	store, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	cleanup := func() {
		_ = store.Close()
	}

	return store, cleanup
}

// testSession returns a session record with every field populated.
func testSession() *SessionRecord {
	return &SessionRecord{
		Profile:            "tor-browser",
		TorMode:            "system",
		DoH:                true,
		RotateIntervalSecs: 15,
		PoolSize:           3,
		PoolFingerprint:    "ab12cd34ef56ab12",
	}
}

// TestOpen tests store opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()

		dbDir := filepath.Join(tmpDir, "newdir", "subdir")
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()

		dbPath := filepath.Join(dbDir, "vekodome.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if store.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, store.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "nonexistent-db")

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		_, err := Open(dbDir, opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected error to mention 'not found', got %q", err.Error())
		}

		// The directory must not have been created as a side effect
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "existing-db")

		store1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		ctx := context.Background()
		id, err := store1.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}
		store1.Close()

		openOpts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}
		store2, err := Open(dbDir, openOpts)
		if err != nil {
			t.Fatalf("failed to open existing store: %v", err)
		}
		defer store2.Close()

		// Verify data persists across open/close
		detail, err := store2.SessionDetail(ctx, id)
		if err != nil {
			t.Fatalf("failed to get session detail: %v", err)
		}
		if detail == nil {
			t.Fatal("expected session to exist in reopened store")
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestSessionLifecycle tests session begin, listing, and end.
func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("begin assigns ID and start time", func(t *testing.T) {
		id, err := store.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}
		if id == 0 {
			t.Error("expected non-zero session ID")
		}

		sessions, err := store.ListSessions(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) == 0 {
			t.Fatal("expected at least one session")
		}

		got := sessions[0]
		if got.ID != id {
			t.Errorf("expected session ID %d, got %d", id, got.ID)
		}
		if got.StartedAt.IsZero() {
			t.Error("expected start time to be set")
		}
		if !got.EndedAt.IsZero() {
			t.Error("expected end time to be zero for open session")
		}
	})

	t.Run("fields round-trip", func(t *testing.T) {
		want := testSession()
		id, err := store.BeginSession(ctx, want)
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}

		detail, err := store.SessionDetail(ctx, id)
		if err != nil {
			t.Fatalf("failed to get detail: %v", err)
		}
		if detail == nil {
			t.Fatal("expected detail, got nil")
		}

		got := detail.Session
		if got.Profile != want.Profile {
			t.Errorf("expected profile %q, got %q", want.Profile, got.Profile)
		}
		if got.TorMode != want.TorMode {
			t.Errorf("expected tor mode %q, got %q", want.TorMode, got.TorMode)
		}
		if got.DoH != want.DoH {
			t.Errorf("expected doh %v, got %v", want.DoH, got.DoH)
		}
		if got.RotateIntervalSecs != want.RotateIntervalSecs {
			t.Errorf("expected interval %d, got %d", want.RotateIntervalSecs, got.RotateIntervalSecs)
		}
		if got.PoolSize != want.PoolSize {
			t.Errorf("expected pool size %d, got %d", want.PoolSize, got.PoolSize)
		}
		if got.PoolFingerprint != want.PoolFingerprint {
			t.Errorf("expected fingerprint %q, got %q", want.PoolFingerprint, got.PoolFingerprint)
		}
	})

	t.Run("end stamps the end time", func(t *testing.T) {
		id, err := store.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}

		if err := store.EndSession(ctx, id); err != nil {
			t.Fatalf("failed to end session: %v", err)
		}

		detail, err := store.SessionDetail(ctx, id)
		if err != nil {
			t.Fatalf("failed to get detail: %v", err)
		}
		if detail.Session.EndedAt.IsZero() {
			t.Error("expected end time to be set after EndSession")
		}
	})
}

// TestListSessions tests ordering and limiting of the session list.
func TestListSessions(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	var lastID int64
	for range 3 {
		id, err := store.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}
		lastID = id
	}

	t.Run("newest first", func(t *testing.T) {
		sessions, err := store.ListSessions(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 3 {
			t.Fatalf("expected 3 sessions, got %d", len(sessions))
		}
		if sessions[0].ID != lastID {
			t.Errorf("expected newest session %d first, got %d", lastID, sessions[0].ID)
		}
	})

	t.Run("limit is honored", func(t *testing.T) {
		sessions, err := store.ListSessions(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(sessions))
		}
	})
}

// TestRecordRotation tests rotation trail persistence.
func TestRecordRotation(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id, err := store.BeginSession(ctx, testSession())
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	endpoints := []string{
		"socks5://10.0.0.2:1080",
		"socks5://10.0.0.3:1080",
		"socks5://10.0.0.1:1080",
	}
	for i, endpoint := range endpoints {
		ev := model.RotationEvent{
			Seq:       i + 1,
			Current:   endpoint,
			Index:     i,
			PoolSize:  3,
			RotatedAt: base.Add(time.Duration(i) * 15 * time.Second),
		}
		if err := store.RecordRotation(ctx, id, ev); err != nil {
			t.Fatalf("failed to record rotation %d: %v", i+1, err)
		}
	}

	detail, err := store.SessionDetail(ctx, id)
	if err != nil {
		t.Fatalf("failed to get detail: %v", err)
	}
	if len(detail.Rotations) != 3 {
		t.Fatalf("expected 3 rotations, got %d", len(detail.Rotations))
	}

	for i, rec := range detail.Rotations {
		if rec.Seq != i+1 {
			t.Errorf("rotation %d: expected seq %d, got %d", i, i+1, rec.Seq)
		}
		if rec.Endpoint != endpoints[i] {
			t.Errorf("rotation %d: expected endpoint %q, got %q", i, endpoints[i], rec.Endpoint)
		}
		if rec.SessionID != id {
			t.Errorf("rotation %d: expected session %d, got %d", i, id, rec.SessionID)
		}
	}

	// The event's own timestamp is stored, not the insert time
	want := base
	if !detail.Rotations[0].RotatedAt.Equal(want) {
		t.Errorf("expected rotated_at %v, got %v", want, detail.Rotations[0].RotatedAt)
	}
}

// TestRecordIdentityCheck tests identity check persistence, both attached to
// a session and standalone.
func TestRecordIdentityCheck(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("check attached to a session", func(t *testing.T) {
		id, err := store.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}

		status := &model.ConnectionStatus{
			CheckedAt:      time.Date(2025, 3, 14, 9, 27, 0, 0, time.UTC),
			PublicIP:       "203.0.113.7",
			ActiveEndpoint: "socks5://10.0.0.2:1080",
		}
		status.SetTorStatus(model.TorConfirmed)

		if err := store.RecordIdentityCheck(ctx, id, status); err != nil {
			t.Fatalf("failed to record check: %v", err)
		}

		detail, err := store.SessionDetail(ctx, id)
		if err != nil {
			t.Fatalf("failed to get detail: %v", err)
		}
		if len(detail.Checks) != 1 {
			t.Fatalf("expected 1 check, got %d", len(detail.Checks))
		}

		got := detail.Checks[0]
		if got.PublicIP != "203.0.113.7" {
			t.Errorf("expected public IP '203.0.113.7', got %q", got.PublicIP)
		}
		if got.TorStatus != "confirmed" {
			t.Errorf("expected tor status 'confirmed', got %q", got.TorStatus)
		}
		if got.ActiveEndpoint != "socks5://10.0.0.2:1080" {
			t.Errorf("expected endpoint to round-trip, got %q", got.ActiveEndpoint)
		}
		if !got.CheckedAt.Equal(status.CheckedAt) {
			t.Errorf("expected checked_at %v, got %v", status.CheckedAt, got.CheckedAt)
		}
		if got.SessionID != id {
			t.Errorf("expected session ID %d, got %d", id, got.SessionID)
		}
	})

	t.Run("standalone check has no session", func(t *testing.T) {
		status := &model.ConnectionStatus{
			CheckedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
			PublicIP:  model.UnknownIP,
		}
		status.SetTorStatus(model.TorNotConfirmed)

		if err := store.RecordIdentityCheck(ctx, 0, status); err != nil {
			t.Fatalf("failed to record standalone check: %v", err)
		}

		checks, err := store.ListStandaloneChecks(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list standalone checks: %v", err)
		}
		if len(checks) != 1 {
			t.Fatalf("expected 1 standalone check, got %d", len(checks))
		}

		got := checks[0]
		if got.SessionID != 0 {
			t.Errorf("expected zero session ID, got %d", got.SessionID)
		}
		if got.PublicIP != model.UnknownIP {
			t.Errorf("expected unknown IP, got %q", got.PublicIP)
		}
		if got.TorStatus != "not confirmed" {
			t.Errorf("expected 'not confirmed', got %q", got.TorStatus)
		}
		if got.ActiveEndpoint != "" {
			t.Errorf("expected empty endpoint, got %q", got.ActiveEndpoint)
		}
	})

	t.Run("zero checked_at falls back to now", func(t *testing.T) {
		status := &model.ConnectionStatus{PublicIP: "198.51.100.4"}
		status.SetTorStatus(model.TorNotConfirmed)

		if err := store.RecordIdentityCheck(ctx, 0, status); err != nil {
			t.Fatalf("failed to record check: %v", err)
		}

		checks, err := store.ListStandaloneChecks(ctx, 1)
		if err != nil {
			t.Fatalf("failed to list standalone checks: %v", err)
		}
		if len(checks) != 1 {
			t.Fatalf("expected 1 check, got %d", len(checks))
		}
		if checks[0].CheckedAt.IsZero() {
			t.Error("expected checked_at to be filled when the status carries none")
		}
	})
}

// TestSessionDetail tests detail retrieval edge cases.
func TestSessionDetail(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("returns nil for non-existent session", func(t *testing.T) {
		detail, err := store.SessionDetail(ctx, 99999)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if detail != nil {
			t.Error("expected nil for non-existent session")
		}
	})

	t.Run("empty trails for fresh session", func(t *testing.T) {
		id, err := store.BeginSession(ctx, testSession())
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}

		detail, err := store.SessionDetail(ctx, id)
		if err != nil {
			t.Fatalf("failed to get detail: %v", err)
		}
		if detail == nil {
			t.Fatal("expected detail, got nil")
		}
		if len(detail.Rotations) != 0 {
			t.Errorf("expected no rotations, got %d", len(detail.Rotations))
		}
		if len(detail.Checks) != 0 {
			t.Errorf("expected no checks, got %d", len(detail.Checks))
		}
	})
}

// TestListStandaloneChecks tests that session-attached checks are excluded.
func TestListStandaloneChecks(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id, err := store.BeginSession(ctx, testSession())
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	attached := &model.ConnectionStatus{PublicIP: "192.0.2.1"}
	attached.SetTorStatus(model.TorConfirmed)
	if err := store.RecordIdentityCheck(ctx, id, attached); err != nil {
		t.Fatalf("failed to record attached check: %v", err)
	}

	standalone := &model.ConnectionStatus{PublicIP: "192.0.2.2"}
	standalone.SetTorStatus(model.TorNotConfirmed)
	if err := store.RecordIdentityCheck(ctx, 0, standalone); err != nil {
		t.Fatalf("failed to record standalone check: %v", err)
	}

	checks, err := store.ListStandaloneChecks(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list standalone checks: %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("expected 1 standalone check, got %d", len(checks))
	}
	if checks[0].PublicIP != "192.0.2.2" {
		t.Errorf("expected the standalone check, got IP %q", checks[0].PublicIP)
	}
}

package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockIndexChecker struct {
	err error
}

func (m *mockIndexChecker) CheckIndex(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		index      IndexChecker
		wantStatus Status
		wantDB     CheckResult
		wantIndex  CheckResult // empty = check absent
	}{
		{"all healthy", nil, &mockIndexChecker{}, Healthy, CheckOK, CheckOK},
		{"db down", errors.New("conn refused"), &mockIndexChecker{}, Unhealthy, CheckError, CheckOK},
		{"index missing", nil, &mockIndexChecker{err: errors.New("no index")}, Degraded, CheckOK, CheckError},
		{"both fail", errors.New("down"), &mockIndexChecker{err: errors.New("down")}, Unhealthy, CheckError, CheckError},
		{"no index checker", nil, nil, Healthy, CheckOK, ""},
		{"no index checker db down", errors.New("fail"), nil, Unhealthy, CheckError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockDBPinger{err: tt.dbErr}, tt.index).Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("status: expected %q, got %q", tt.wantStatus, r.Status)
			}
			if r.Checks["database"] != tt.wantDB {
				t.Errorf("database: expected %q, got %q", tt.wantDB, r.Checks["database"])
			}
			got, ok := r.Checks["index"]
			if tt.wantIndex == "" {
				if ok {
					t.Error("index check should be absent when no checker is set")
				}
				return
			}
			if got != tt.wantIndex {
				t.Errorf("index: expected %q, got %q", tt.wantIndex, got)
			}
		})
	}
}

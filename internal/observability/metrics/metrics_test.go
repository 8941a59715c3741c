package metrics

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestObserveOperationCounts(t *testing.T) {
	Init(nil, zap.NewNop())

	before := testutil.ToFloat64(operationTotal.WithLabelValues("release_rent", "precondition"))
	ObserveOperation("release_rent", "precondition", 3*time.Millisecond)
	after := testutil.ToFloat64(operationTotal.WithLabelValues("release_rent", "precondition"))
	if after-before != 1 {
		t.Fatalf("expected one observation, got %v", after-before)
	}
}

func TestAddFundsIgnoresZero(t *testing.T) {
	Init(nil, zap.NewNop())

	before := testutil.ToFloat64(fundsTotal.WithLabelValues("rent_release", "out"))
	AddFunds("rent_release", "out", 0)
	AddFunds("rent_release", "out", 970)
	after := testutil.ToFloat64(fundsTotal.WithLabelValues("rent_release", "out"))
	if after-before != 970 {
		t.Fatalf("expected 970, got %v", after-before)
	}
}

func TestQueryCountFallsBackToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	if got := queryCount(db, zap.NewNop(), "SELECT COUNT(*) FROM event_outbox"); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}

	mock.ExpectQuery("SELECT COUNT").WillReturnError(sqlmock.ErrCancelled)
	if got := queryCount(db, zap.NewNop(), "SELECT COUNT(*) FROM event_outbox"); got != 0 {
		t.Fatalf("expected 0 on error, got %v", got)
	}
}

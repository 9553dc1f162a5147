package sharing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Perlovich/phone-sharing-service/internal/logger"
	"github.com/Perlovich/phone-sharing-service/internal/metadata"
	"github.com/Perlovich/phone-sharing-service/internal/metrics"
	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

var (
	iphone11ID = uuid.MustParse("2524f734-e876-11ed-a05b-0242ac120003")
	unknownID  = uuid.MustParse("013203c4-e887-11ed-a05b-0242ac120003")
	bookedAt   = time.Date(2023, 5, 2, 10, 40, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu       sync.Mutex
	booked   []phone.Phone
	returned []phone.Phone
	err      error
}

func (p *recordingPublisher) PublishPhoneBooked(ctx context.Context, ph phone.Phone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.booked = append(p.booked, ph)
	return p.err
}

func (p *recordingPublisher) PublishPhoneReturned(ctx context.Context, ph phone.Phone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returned = append(p.returned, ph)
	return p.err
}

type countingSource struct {
	calls   atomic.Int32
	records map[string][]metadata.Record
}

func (s *countingSource) Lookup(ctx context.Context, name, token string) ([]metadata.Record, error) {
	s.calls.Add(1)
	return s.records[name], nil
}

type fixture struct {
	svc     *Service
	events  *recordingPublisher
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cache MetadataResolver) fixture {
	t.Helper()
	ledger := phone.NewService(
		phone.NewMemoryRepository(phone.DefaultCatalog()),
		phone.ClockFunc(func() time.Time { return bookedAt }),
		logger.NewNop(),
	)
	events := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	return fixture{
		svc:     NewService(ledger, cache, Options{Events: events, Metrics: m}),
		events:  events,
		metrics: m,
	}
}

func offlineCache() *metadata.Cache {
	return metadata.NewCache(&countingSource{}, metadata.WithToken("secret"), metadata.WithOffline(true))
}

func TestListPhones_OfflineCatalog(t *testing.T) {
	f := newFixture(t, offlineCache())

	views, err := f.svc.ListPhones(context.Background())
	require.NoError(t, err)

	wantIDs := []string{
		"2524f734-e876-11ed-a05b-0242ac120003", // Apple iPhone 11
		"2524f216-e876-11ed-a05b-0242ac120003", // Apple iPhone 12
		"2524f0ae-e876-11ed-a05b-0242ac120003", // Apple iPhone 13
		"2524f8e2-e876-11ed-a05b-0242ac120003", // iPhone X
		"2524edd4-e876-11ed-a05b-0242ac120003", // Motorola Nexus 6
		"2524fa54-e876-11ed-a05b-0242ac120003", // Nokia 3310
		"2524ef46-e876-11ed-a05b-0242ac120003", // Oneplus 9
		"2524e910-e876-11ed-a05b-0242ac120003", // Samsung Galaxy S8
		"2524ec4e-e876-11ed-a05b-0242ac120003", // Samsung Galaxy S8
		"2524e7a8-e876-11ed-a05b-0242ac120003", // Samsung Galaxy S9
	}
	require.Len(t, views, len(wantIDs))
	for i, v := range views {
		assert.Equal(t, wantIDs[i], v.ID.String(), "position %d", i)
		assert.True(t, v.Available)
		assert.Nil(t, v.BookerName)
		assert.Nil(t, v.BookingTime)
		assert.Equal(t, metadata.Unknown, v.Technology)
		assert.Equal(t, metadata.Unknown, v.Band2G)
		assert.Equal(t, metadata.Unknown, v.Band3G)
		assert.Equal(t, metadata.Unknown, v.Band4G)
	}
}

func TestBookPhone_ShowsUpInList(t *testing.T) {
	f := newFixture(t, offlineCache())
	ctx := context.Background()

	require.NoError(t, f.svc.BookPhone(ctx, iphone11ID, "John Doe"))

	views, err := f.svc.ListPhones(ctx)
	require.NoError(t, err)
	require.Equal(t, iphone11ID, views[0].ID)
	assert.False(t, views[0].Available)
	require.NotNil(t, views[0].BookerName)
	assert.Equal(t, "John Doe", *views[0].BookerName)
	require.NotNil(t, views[0].BookingTime)
	assert.True(t, views[0].BookingTime.Equal(bookedAt))
	for _, v := range views[1:] {
		assert.True(t, v.Available, v.Name)
	}
}

func TestListPhones_JoinsRemoteMetadata(t *testing.T) {
	band := "2100 MHz"
	src := &countingSource{records: map[string][]metadata.Record{
		"Nokia 3310": {{Band3G: &band}},
	}}
	f := newFixture(t, metadata.NewCache(src, metadata.WithToken("secret")))
	ctx := context.Background()

	views, err := f.svc.ListPhones(ctx)
	require.NoError(t, err)

	byName := make(map[string]PhoneView, len(views))
	for _, v := range views {
		byName[v.Name] = v
	}
	nokia := byName["Nokia 3310"]
	assert.Equal(t, "3G", nokia.Technology)
	assert.Equal(t, "2100 MHz", nokia.Band3G)
	assert.Equal(t, metadata.Unknown, nokia.Band4G)
	assert.Equal(t, metadata.Unknown, byName["Oneplus 9"].Technology)

	// Nine distinct names; the two Galaxy S8 share one lookup.
	assert.Equal(t, int32(9), src.calls.Load())

	_, err = f.svc.ListPhones(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(9), src.calls.Load(), "second listing must be served from cache")
}

func TestBookAndReturn_Events(t *testing.T) {
	f := newFixture(t, offlineCache())
	ctx := context.Background()

	require.NoError(t, f.svc.BookPhone(ctx, iphone11ID, "John Doe"))
	require.NoError(t, f.svc.BookPhone(ctx, iphone11ID, "John Doe"))
	require.NoError(t, f.svc.ReturnPhone(ctx, iphone11ID))
	require.NoError(t, f.svc.ReturnPhone(ctx, iphone11ID))

	require.Len(t, f.events.booked, 1)
	require.Len(t, f.events.returned, 1)
	assert.Equal(t, "John Doe", *f.events.booked[0].BookerName)
	assert.True(t, f.events.returned[0].Available())

	ledger := f.metrics.LedgerOperations
	assert.Equal(t, 1.0, testutil.ToFloat64(ledger.WithLabelValues(operationBook, metrics.OutcomeBooked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ledger.WithLabelValues(operationBook, metrics.OutcomeNoop)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ledger.WithLabelValues(operationReturn, metrics.OutcomeReturned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ledger.WithLabelValues(operationReturn, metrics.OutcomeNoop)))
}

func TestBookPhone_Failures(t *testing.T) {
	f := newFixture(t, offlineCache())
	ctx := context.Background()
	require.NoError(t, f.svc.BookPhone(ctx, iphone11ID, "John Doe"))

	tests := map[string]struct {
		id      uuid.UUID
		booker  string
		wantErr error
		outcome string
	}{
		"unknown id":   {id: unknownID, booker: "John Doe", wantErr: phone.ErrNotFound, outcome: metrics.OutcomeNotFound},
		"blank booker": {id: iphone11ID, booker: " ", wantErr: phone.ErrInvalidBooker, outcome: metrics.OutcomeInvalidBooker},
		"other booker": {id: iphone11ID, booker: "Jack Black", wantErr: phone.ErrAlreadyBooked, outcome: metrics.OutcomeAlreadyBooked},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := f.svc.BookPhone(ctx, tt.id, tt.booker)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LedgerOperations.WithLabelValues(operationBook, tt.outcome)))
		})
	}
	assert.Len(t, f.events.booked, 1)
}

func TestReturnPhone_UnknownID(t *testing.T) {
	f := newFixture(t, offlineCache())

	err := f.svc.ReturnPhone(context.Background(), unknownID)
	assert.True(t, errors.Is(err, phone.ErrNotFound), "got %v", err)
	assert.Empty(t, f.events.returned)
}

func TestBookPhone_PublishFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t, offlineCache())
	f.events.err = errors.New("broker down")

	require.NoError(t, f.svc.BookPhone(context.Background(), iphone11ID, "John Doe"))
	require.NoError(t, f.svc.ReturnPhone(context.Background(), iphone11ID))
}

func TestBookPhone_WithoutPublisher(t *testing.T) {
	ledger := phone.NewService(phone.NewMemoryRepository(phone.DefaultCatalog()), phone.SystemClock{}, logger.NewNop())
	svc := NewService(ledger, offlineCache(), Options{})

	require.NoError(t, svc.BookPhone(context.Background(), iphone11ID, "John Doe"))
	require.NoError(t, svc.ReturnPhone(context.Background(), iphone11ID))
}

type failingLedger struct{ Ledger }

func (failingLedger) ListPhones(ctx context.Context) ([]phone.Phone, error) {
	return nil, errors.New("db down")
}

func TestListPhones_LedgerError(t *testing.T) {
	svc := NewService(failingLedger{}, offlineCache(), Options{})

	_, err := svc.ListPhones(context.Background())
	require.Error(t, err)
}

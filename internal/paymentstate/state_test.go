package paymentstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

func sampleRecord(createdAt time.Time) PendingPayment {
	return PendingPayment{
		BookingID:        101,
		BookingKind:      booking.KindAppointment,
		PaymentID:        555,
		PaymentSessionID: "sess_abc",
		CreatedAt:        createdAt,
	}
}

func TestEncode_UsesPersistedLayout(t *testing.T) {
	ts := time.UnixMilli(1714557000123)
	raw, err := Encode(sampleRecord(ts))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{
		"bookingId":        float64(101),
		"bookingKind":      "appointment",
		"paymentId":        float64(555),
		"paymentSessionId": "sess_abc",
		"timestamp":        float64(1714557000123),
	}, got)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(ts))
	assert.Equal(t, int64(555), decoded.PaymentID)
}

func TestEncode_RejectsIncompleteRecord(t *testing.T) {
	rec := sampleRecord(time.Now())
	rec.PaymentSessionID = ""
	_, err := Encode(rec)
	assert.Error(t, err)
}

func TestDecode_Corrupt(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"bookingId":101,"bookingKind":"appointment","paymentId":555,"paymentSessionId":"s"}`,
		`{"bookingId":101,"bookingKind":"consult","paymentId":555,"paymentSessionId":"s","timestamp":1}`,
		`{"bookingId":0,"bookingKind":"operation","paymentId":555,"paymentSessionId":"s","timestamp":1}`,
	} {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrCorrupt, raw)
	}
}

func TestLoad_FreshRecord(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), sampleRecord(now.Add(-23*time.Hour))))

	rec, err := Load(context.Background(), store, now, MaxAge)
	require.NoError(t, err)
	assert.Equal(t, int64(101), rec.BookingID)

	_, err = store.Get(context.Background())
	assert.NoError(t, err, "fresh records stay in the store")
}

func TestLoad_StaleRecordIsDiscarded(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), sampleRecord(now.Add(-25*time.Hour))))

	rec, err := Load(context.Background(), store, now, MaxAge)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrStale)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_ExactlyAtBoundaryIsFresh(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), sampleRecord(now.Add(-MaxAge))))

	_, err := Load(context.Background(), store, now, MaxAge)
	assert.NoError(t, err)
}

func TestLoad_CorruptRecordIsDiscarded(t *testing.T) {
	store := NewMemoryStore()
	store.SetRaw([]byte(`{"bookingId":"oops"}`))

	_, err := Load(context.Background(), store, time.Now(), MaxAge)
	assert.True(t, errors.Is(err, ErrCorrupt))

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(context.Background(), NewMemoryStore(), time.Now(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

type plainStore struct{ inner *MemoryStore }

func (p plainStore) Get(ctx context.Context) (*PendingPayment, error) { return p.inner.Get(ctx) }
func (p plainStore) Set(ctx context.Context, r PendingPayment) error { return p.inner.Set(ctx, r) }
func (p plainStore) Clear(ctx context.Context) error { return p.inner.Clear(ctx) }

func TestClaim_HoldsAtMostOneRecord(t *testing.T) {
	ctx := context.Background()
	stores := map[string]Store{
		"claimer":  NewMemoryStore(),
		"fallback": plainStore{inner: NewMemoryStore()},
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			first := sampleRecord(time.Now())
			ok, err := Claim(ctx, store, first)
			require.NoError(t, err)
			assert.True(t, ok)

			second := sampleRecord(time.Now())
			second.BookingID = 202
			second.PaymentID = 666
			ok, err = Claim(ctx, store, second)
			require.NoError(t, err)
			assert.False(t, ok)

			held, err := store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(101), held.BookingID)
		})
	}
}

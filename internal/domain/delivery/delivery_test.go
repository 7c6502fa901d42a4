package delivery

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDeliveryRepo struct {
	opt   *Option
	err   error
	calls int
}

func (m *mockDeliveryRepo) FindByID(_ context.Context, _ string) (*Option, error) {
	m.calls++
	return m.opt, m.err
}

func TestResolver_Resolve(t *testing.T) {
	express := &Option{
		ID:          "2",
		Name:        "Express",
		Price:       decimal.RequireFromString("3.00"),
		DeluxePrice: decimal.RequireFromString("1.50"),
		ETA:         1,
	}

	tests := []struct {
		name    string
		repo    *mockDeliveryRepo
		strict  bool
		id      string
		want    Option
		wantErr error
	}{
		{name: "empty id uses default", repo: &mockDeliveryRepo{}, id: "", want: Default()},
		{name: "known id", repo: &mockDeliveryRepo{opt: express}, id: "2", want: *express},
		{name: "unknown id uses default", repo: &mockDeliveryRepo{err: ErrNotFound}, id: "9", want: Default()},
		{name: "unknown id uses default in strict mode", repo: &mockDeliveryRepo{err: ErrNotFound}, strict: true, id: "9", want: Default()},
		{name: "store failure falls back", repo: &mockDeliveryRepo{err: errors.New("timeout")}, id: "2", want: Default()},
		{name: "store failure in strict mode", repo: &mockDeliveryRepo{err: errors.New("timeout")}, strict: true, id: "2", wantErr: ErrLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver(tt.repo, tt.strict).Resolve(context.Background(), tt.id)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_EmptyIDSkipsStore(t *testing.T) {
	repo := &mockDeliveryRepo{}

	_, err := NewResolver(repo, true).Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Zero(t, repo.calls)
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.True(t, d.PriceFor(false).IsZero())
	assert.True(t, d.PriceFor(true).IsZero())
	assert.Equal(t, 5, d.ETA)
}

package tenant

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"storedesk/internal/apperr"
	"storedesk/internal/domain/stores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	all := []stores.Status{stores.StatusActive, stores.StatusSuspended, stores.StatusExpired, stores.StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			switch {
			case from == to:
				assert.NoError(t, err, "%s -> %s", from, to)
			case from == stores.StatusCancelled:
				assert.True(t, errors.Is(err, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition, "")),
					"%s -> %s", from, to)
			default:
				assert.NoError(t, err, "%s -> %s", from, to)
			}
		}
	}

	err := CheckTransition(stores.StatusActive, "archived")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSlug(t *testing.T) {
	at := time.UnixMilli(1760000000123)

	tests := []struct {
		name string
		want string
	}{
		{"Corner Shop", "corner-shop-1760000000123"},
		{"  Ali's   Market  ", "alis-market-1760000000123"},
		{"Café & Co", "caf--co-1760000000123"},
		{"متجر", "-1760000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.name, at))
		})
	}

	valid := regexp.MustCompile(`^[a-z0-9-]+$`)
	assert.Regexp(t, valid, Slug("Any\tName\nHere!", at))
	assert.NotEqual(t, Slug("Same", at), Slug("Same", at.Add(time.Millisecond)))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(PlanPrices{FreeTrialDays: 14, Monthly: 5, SixMonths: 30, Yearly: 40})

	free, err := c.Lookup(stores.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, 14, free.DurationDays)
	assert.Zero(t, free.Price)

	six, err := c.Lookup(stores.PlanSixMonth)
	require.NoError(t, err)
	assert.Equal(t, 180, six.DurationDays)
	assert.Equal(t, 30.0, six.Price)

	_, err = c.Lookup("weekly")
	assert.Error(t, err)

	names := []stores.Plan{}
	for _, p := range c.All() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []stores.Plan{stores.PlanFree, stores.PlanMonthly, stores.PlanSixMonth, stores.PlanYearly}, names)

	d, err := DefaultCatalog().Lookup(stores.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, 30, d.DurationDays)
}

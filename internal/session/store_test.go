package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pajangan-promoshot/internal/promo"
)

func newStore() *Store {
	return NewStore(Options{DefaultBackground: "studio"})
}

func TestDefaults(t *testing.T) {
	st := newStore().Get("a")
	assert.Equal(t, "studio", st.Background)
	assert.Equal(t, promo.Ratio9x16, st.AspectRatio)
	assert.False(t, st.Ready())
	assert.False(t, st.Busy)
}

func TestSetImage(t *testing.T) {
	s := newStore()
	s.SetError("a", "old error")

	st, err := s.SetImage("a", RolePerson, promo.ImageFile{Base64: "p", MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Empty(t, st.Err)
	assert.False(t, st.Ready())

	st, err = s.SetImage("a", RoleProduct, promo.ImageFile{Base64: "q", MIMEType: "image/png"})
	require.NoError(t, err)
	assert.True(t, st.Ready())

	_, err = s.SetImage("a", Role("pet"), promo.ImageFile{})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestFailedUploadKeepsPreviousImage(t *testing.T) {
	s := newStore()
	_, err := s.SetImage("a", RoleProduct, promo.ImageFile{Base64: "first", MIMEType: "image/png"})
	require.NoError(t, err)

	st := s.SetError("a", "decode failed")
	require.NotNil(t, st.Product)
	assert.Equal(t, "first", st.Product.Base64)
	assert.Equal(t, "decode failed", st.Err)
}

func TestBeginFinish(t *testing.T) {
	s := newStore()
	s.Finish("a", []string{"old"}, "")

	st, err := s.Begin("a")
	require.NoError(t, err)
	assert.True(t, st.Busy)
	assert.Empty(t, st.Results)

	_, err = s.Begin("a")
	assert.ErrorIs(t, err, ErrBusy)

	st = s.Finish("a", []string{"1", "2"}, "")
	assert.False(t, st.Busy)
	assert.Equal(t, []string{"1", "2"}, st.Results)

	_, err = s.Begin("a")
	require.NoError(t, err)
	st = s.Finish("a", []string{"ignored"}, "boom")
	assert.False(t, st.Busy)
	assert.Equal(t, "boom", st.Err)
	assert.Empty(t, st.Results)
}

func TestSnapshotIsolation(t *testing.T) {
	s := newStore()
	s.Finish("a", []string{"1"}, "")

	st := s.Get("a")
	st.Results[0] = "changed"
	assert.Equal(t, "1", s.Get("a").Results[0])
}

func TestReset(t *testing.T) {
	s := newStore()
	_, _ = s.SetImage("a", RolePerson, promo.ImageFile{Base64: "p", MIMEType: "image/png"})
	s.Update("a", func(st *State) { st.AspectRatio = promo.Ratio1x1 })

	st, err := s.Reset("a")
	require.NoError(t, err)
	assert.Nil(t, st.Person)
	assert.Equal(t, promo.Ratio9x16, st.AspectRatio)
}

func TestResetRefusedWhileBusy(t *testing.T) {
	s := newStore()
	_, _ = s.SetImage("a", RolePerson, promo.ImageFile{Base64: "p", MIMEType: "image/png"})
	_, err := s.Begin("a")
	require.NoError(t, err)

	st, err := s.Reset("a")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, st.Busy)
	require.NotNil(t, st.Person)

	st = s.Finish("a", []string{"1"}, "")
	assert.Equal(t, []string{"1"}, st.Results)
	require.NotNil(t, st.Person)

	st, err = s.Reset("a")
	require.NoError(t, err)
	assert.Nil(t, st.Person)
	assert.Empty(t, st.Results)
}

func TestBeginReturnsCurrentImages(t *testing.T) {
	s := newStore()
	_, _ = s.SetImage("a", RolePerson, promo.ImageFile{Base64: "p1", MIMEType: "image/png"})
	_, _ = s.SetImage("a", RoleProduct, promo.ImageFile{Base64: "q", MIMEType: "image/png"})
	_, _ = s.SetImage("a", RolePerson, promo.ImageFile{Base64: "p2", MIMEType: "image/png"})

	st, err := s.Begin("a")
	require.NoError(t, err)
	require.NotNil(t, st.Person)
	assert.Equal(t, "p2", st.Person.Base64)
	assert.Equal(t, "q", st.Product.Base64)
}

func TestSweep(t *testing.T) {
	s := NewStore(Options{TTL: time.Minute})
	now := time.Now()
	s.now = func() time.Time { return now }

	s.Get("idle")
	_, err := s.Begin("busy")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	s.Get("fresh")

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 2, s.Len())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("product")
	require.NoError(t, err)
	assert.Equal(t, RoleProduct, r)

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

package serial

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CK6170/calunc-go/models"
)

// fakeLink answers each command line with the next scripted response.
type fakeLink struct {
	responses map[string][]string
	sent      []string
	out       bytes.Buffer
	closed    bool
}

func (f *fakeLink) Write(p []byte) (int, error) {
	cmd := strings.TrimRight(string(p), "\r\n")
	f.sent = append(f.sent, cmd)
	queue := f.responses[cmd]
	if len(queue) > 0 {
		f.out.WriteString(queue[0] + "\r\n")
		f.responses[cmd] = queue[1:]
	}
	return len(p), nil
}

func (f *fakeLink) Read(p []byte) (int, error) { return f.out.Read(p) }

func (f *fakeLink) Close() error {
	f.closed = true
	return nil
}

func TestParseWeight(t *testing.T) {
	q, stable, err := ParseWeight("S S     100.02 g")
	require.NoError(t, err)
	assert.True(t, stable)
	assert.Equal(t, models.Q(100.02, models.Gram), q)

	q, stable, err = ParseWeight("S D      12.5 mg")
	require.NoError(t, err)
	assert.False(t, stable)
	assert.Equal(t, models.Milligram, q.Unit)

	_, _, err = ParseWeight("S +")
	assert.ErrorIs(t, err, ErrOverload)
	_, _, err = ParseWeight("S -")
	assert.ErrorIs(t, err, ErrUnderload)
	_, _, err = ParseWeight("S I")
	assert.ErrorIs(t, err, ErrBusy)
	_, _, err = ParseWeight("S S  1.0 lb")
	assert.ErrorIs(t, err, models.ErrUnitMismatch)
	_, _, err = ParseWeight("garbage")
	assert.Error(t, err)
}

func TestBalanceCommands(t *testing.T) {
	link := &fakeLink{responses: map[string][]string{
		"S":  {"S S     200.001 g", "S D     200.4 g"},
		"SI": {"S D     199.9 g"},
		"Z":  {"Z A"},
		"I4": {`I4 A "B123456789"`},
		"X":  {"ES"},
	}}
	b := NewBalance(link, Config{Port: "fake"})

	q, err := b.ReadStable()
	require.NoError(t, err)
	assert.Equal(t, 200.001, q.Value)

	_, err = b.ReadStable()
	assert.ErrorIs(t, err, ErrUnstable)

	q, stable, err := b.ReadImmediate()
	require.NoError(t, err)
	assert.False(t, stable)
	assert.Equal(t, 199.9, q.Value)

	require.NoError(t, b.Zero())

	sn, err := b.SerialNumber()
	require.NoError(t, err)
	assert.Equal(t, "B123456789", sn)

	_, err = b.command("X")
	assert.ErrorIs(t, err, ErrSyntax)

	assert.Equal(t, []string{"S", "S", "SI", "Z", "I4", "X"}, link.sent)
	require.NoError(t, b.Close())
	assert.True(t, link.closed)
	assert.Equal(t, "fake", b.Port())
}

func TestOpenBalanceNeedsPort(t *testing.T) {
	_, err := OpenBalance(Config{})
	assert.Error(t, err)
}

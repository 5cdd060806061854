package spinner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStart_NonTerminalIsSilent(t *testing.T) {
	var buf bytes.Buffer
	sp := Start(&buf, "running")
	sp.Update("step 2/3")
	sp.Stop()
	sp.Stop()
	assert.Empty(t, buf.String())
}

func TestNilSpinner(t *testing.T) {
	var sp *Spinner
	assert.NotPanics(t, func() {
		sp.Update("x")
		sp.Stop()
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDocURL(t *testing.T) {
	t.Cleanup(ResetDocsBaseURL)

	assert.Equal(t, DefaultDocsBaseURL+"/cun-gs-001", BuildDocURL("CUN-GS-001"))

	SetDocsBaseURL(" https://biblioteca.cun.edu.co/apa/ ")
	assert.Equal(t, "https://biblioteca.cun.edu.co/apa/cun-ref-006", BuildDocURL("CUN-REF-006"))

	ResetDocsBaseURL()
	assert.Equal(t, DefaultDocsBaseURL+"/cun-ref-006", BuildDocURL("CUN-REF-006"))
}

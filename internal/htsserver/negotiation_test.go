package htsserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdidion/htsget-server/internal/htserror"
)

func TestCheckAccept(t *testing.T) {
	tests := []struct {
		name     string
		accept   string
		accepted bool
	}{
		{"absent header", "", true},
		{"plain json", "application/json", true},
		{"exact supported version", "application/vnd.ga4gh.htsget.v1.1.0+json", true},
		{"newer patch", "application/vnd.ga4gh.htsget.v1.1.5+json", true},
		{"newer minor", "application/vnd.ga4gh.htsget.v1.2.0+json", true},
		{"newer major", "application/vnd.ga4gh.htsget.v2.0.0+json", false},
		{"older version", "application/vnd.ga4gh.htsget.v0.9.0+json", false},
		{"older minor", "application/vnd.ga4gh.htsget.v1.0.0+json", false},
		{"text plain", "text/plain", false},
		{"wildcard", "*/*", false},
		{"non-json application type", "application/xml", false},
		{"wrong arity", "application/vnd.ga4gh.htsget.v1.1+json", false},
		{"four components", "application/vnd.ga4gh.htsget.v1.1.0.0+json", false},
		{"non-numeric version", "application/vnd.ga4gh.htsget.vone.two.three+json", false},
		{"missing suffix", "application/vnd.ga4gh.htsget.v1.1.0", false},
		{"uppercase versioned type", "application/VND.GA4GH.HTSGET.V1.1.0+JSON", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAccept(tt.accept)
			if tt.accepted {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, htserror.KindUnsupportedMediaType, htserror.Coerce(err).Kind)
			}
		})
	}
}

func TestVersionOrdering(t *testing.T) {
	assert.True(t, lessThan([3]int{0, 9, 9}, [3]int{1, 1, 0}))
	assert.True(t, lessThan([3]int{1, 0, 9}, [3]int{1, 1, 0}))
	assert.True(t, lessThan([3]int{1, 1, 0}, [3]int{1, 1, 1}))
	assert.False(t, lessThan([3]int{1, 1, 0}, [3]int{1, 1, 0}))
	assert.False(t, lessThan([3]int{2, 0, 0}, [3]int{1, 1, 0}))
}

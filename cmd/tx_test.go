package cmd

import (
	"testing"

	"github.com/mselser95/updown-rounds/pkg/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunds(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []httpserver.FundsJSON
		wantErr bool
	}{
		{name: "none", raw: nil, want: []httpserver.FundsJSON{}},
		{
			name: "two_coins",
			raw:  []string{"1000uscrt", "5uatom"},
			want: []httpserver.FundsJSON{{Denom: "uscrt", Amount: "1000"}, {Denom: "uatom", Amount: "5"}},
		},
		{name: "no_amount", raw: []string{"uscrt"}, wantErr: true},
		{name: "no_denom", raw: []string{"1000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFunds(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

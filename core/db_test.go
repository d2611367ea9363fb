package core

import (
	"database/sql"
	"testing"
)

var (
	_ DBExecutor = (*sql.DB)(nil)
	_ DBExecutor = (*sql.Tx)(nil)
)

func TestDBOrdering_String(t *testing.T) {
	tests := []struct {
		name string
		ord  DBOrdering
		want string
	}{
		{"ascending", DBOrdering{Field: "created_at", Ascending: true}, "created_at ASC"},
		{"descending", DBOrdering{Field: "submitted_at"}, "submitted_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ord.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLead(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    LeadInfo
	}{
		{
			name:    "name, email and phone",
			message: "Hi, I'm Sarah Connor, reach me at sarah@example.com or +1 555 123 4567",
			want:    LeadInfo{Name: "Sarah Connor", Email: "sarah@example.com", Phone: "+1 555 123 4567"},
		},
		{
			name:    "compact international number",
			message: "my name is Tom, call +1234567890",
			want:    LeadInfo{Name: "Tom", Phone: "+1234567890"},
		},
		{
			name:    "dashed number",
			message: "Call me at 555-123-4567 please",
			want:    LeadInfo{Phone: "555-123-4567"},
		},
		{
			name:    "name here at message start",
			message: "Maria here, email maria.lopez@shop.co",
			want:    LeadInfo{Name: "Maria", Email: "maria.lopez@shop.co"},
		},
		{
			name:    "short digit runs are not phones",
			message: "I want 2 dresses in size 12 for $129",
			want:    LeadInfo{},
		},
		{
			name:    "lowercase words are not names",
			message: "i am interested in the jacket",
			want:    LeadInfo{},
		},
		{
			name:    "empty",
			message: "",
			want:    LeadInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLead(tt.message)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Email != "" || tt.want.Phone != "", got.HasContact())
		})
	}
}

package chat

import (
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\+?\(?[0-9]{1,3}\)?[-\s.]?\(?[0-9]{1,4}\)?[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,9}`)

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?i:i am|i'm|my name is|this is|call me)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\s+(?i:here)\b`),
	}
)

const minPhoneDigits = 7

// LeadInfo is the contact data found in a customer message.
type LeadInfo struct {
	Name  string
	Email string
	Phone string
}

// HasContact reports whether the lead can be reached.
func (l LeadInfo) HasContact() bool {
	return l.Email != "" || l.Phone != ""
}

// ExtractLead pulls the first email, phone number and self-introduced name
// out of a message. Short digit runs such as quantities or prices are not
// treated as phone numbers.
func ExtractLead(message string) LeadInfo {
	var info LeadInfo

	if email := emailPattern.FindString(message); email != "" {
		info.Email = email
	}

	for _, candidate := range phonePattern.FindAllString(message, -1) {
		if countDigits(candidate) >= minPhoneDigits {
			info.Phone = candidate
			break
		}
	}

	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			info.Name = m[1]
			break
		}
	}
	return info
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

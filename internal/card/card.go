package card

import "time"

// Card represents one stored business card entry. The six textual fields are
// all optional; an empty string means the field was not readable on the card
// and is rendered as a placeholder, never treated as an error.
type Card struct {
	ID            string    `json:"id"`
	CompanyName   string    `json:"companyName"`
	ContactPerson string    `json:"contactPerson"`
	PhoneNumber   string    `json:"phoneNumber"`
	Email         string    `json:"email"`
	Website       string    `json:"website"`
	Address       string    `json:"address"`
	Timestamp     int64     `json:"timestamp"` // Creation time in epoch milliseconds, sole sort key
	UploadedBy    string    `json:"uploadedBy"`
	Filename      string    `json:"filename,omitempty"`    // Archived original image
	ContentType   string    `json:"contentType,omitempty"` // MIME type of the archived image
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Fields carries the six editable textual fields of a card. Edits overwrite
// exactly these; ID, Timestamp and UploadedBy are immutable once assigned.
type Fields struct {
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	PhoneNumber   string `json:"phoneNumber"`
	Email         string `json:"email"`
	Website       string `json:"website"`
	Address       string `json:"address"`
}

// applyFields overwrites the editable fields on a card
func (c *Card) applyFields(f Fields) {
	c.CompanyName = f.CompanyName
	c.ContactPerson = f.ContactPerson
	c.PhoneNumber = f.PhoneNumber
	c.Email = f.Email
	c.Website = f.Website
	c.Address = f.Address
}

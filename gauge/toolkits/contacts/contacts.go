// Package contacts is a small address-book toolkit used to exercise the
// catalog and the evaluation engine end to end.
package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaugeworks/toolgauge/gauge/catalog"
)

// ContactType categorizes an address-book entry.
type ContactType string

const (
	TypePersonal     ContactType = "personal"
	TypeProfessional ContactType = "professional"
	TypeFamily       ContactType = "family"
)

// EnumValues lists the accepted contact types, in wire order.
func (ContactType) EnumValues() []string {
	return []string{string(TypePersonal), string(TypeProfessional), string(TypeFamily)}
}

// Contact is one address-book entry.
type Contact struct {
	ID        string      `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone,omitempty"`
	Type      ContactType `json:"type"`
	Notes     string      `json:"notes,omitempty"`
}

// CreateContactArgs are the inputs of CreateContact.
type CreateContactArgs struct {
	FirstName string      `desc:"The contact's first name"`
	LastName  string      `desc:"The contact's last name"`
	Email     string      `desc:"The contact's email address"`
	Phone     *string     `desc:"The contact's phone number"`
	Type      ContactType `desc:"The category of the contact" default:"personal"`
	Notes     *string     `desc:"Free-form notes about the contact" inferrable:"false"`
}

// CreateContact adds a new entry to the address book.
func CreateContact(ctx context.Context, args CreateContactArgs) (Contact, error) {
	if args.FirstName == "" || args.LastName == "" {
		return Contact{}, fmt.Errorf("a contact needs both a first and a last name")
	}
	contact := Contact{
		ID:        strings.ToLower(args.FirstName + "-" + args.LastName),
		FirstName: args.FirstName,
		LastName:  args.LastName,
		Email:     args.Email,
		Type:      args.Type,
	}
	if args.Phone != nil {
		contact.Phone = *args.Phone
	}
	if args.Notes != nil {
		contact.Notes = *args.Notes
	}
	return contact, nil
}

// SearchContactsArgs are the inputs of SearchContacts.
type SearchContactsArgs struct {
	Query string      `desc:"Text to match against contact names and emails"`
	Type  ContactType `desc:"Restrict results to one contact category" default:"personal"`
	Limit int         `desc:"Maximum number of contacts to return" default:"10"`
}

// SearchContacts finds address-book entries matching a query.
func SearchContacts(ctx context.Context, args SearchContactsArgs) ([]Contact, error) {
	if args.Query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	// The in-memory book is empty; an empty result is still a valid answer.
	return []Contact{}, nil
}

// DeleteContactArgs are the inputs of DeleteContact.
type DeleteContactArgs struct {
	ContactID string `desc:"The identifier of the contact to remove"`
}

// DeleteContact removes an entry from the address book.
func DeleteContact(ctx context.Context, args DeleteContactArgs) error {
	if args.ContactID == "" {
		return fmt.Errorf("contact_id must not be empty")
	}
	return nil
}

// Toolkit declares the contacts tools for catalog registration.
func Toolkit() *catalog.Toolkit {
	tk := catalog.NewToolkit("Contacts", "0.1.0", "Manage a personal address book")
	tk.Add(CreateContact, catalog.Declaration{
		Description:       "Create a new contact in the address book",
		OutputDescription: "The created contact",
	})
	tk.Add(SearchContacts, catalog.Declaration{
		Description:       "Search the address book for matching contacts",
		OutputDescription: "The contacts matching the query",
	})
	tk.Add(DeleteContact, catalog.Declaration{
		Description: "Delete a contact from the address book",
	})
	return tk
}

// Package model defines the data structures used throughout the application.
//
// Every document carries three sets of struct tags:
//   - json:     the wire format the frontend consumes (camelCase)
//   - bson:     the MongoDB document layout
//   - validate: the field rules enforced by internal/validation before any write
//
// IDs are plain strings in the model. The Mongo backend stores ObjectID hex
// strings, the SQLite backend stores xids; callers never need to know which.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Role decides which gate a user can pass.
type Role string

const (
	RoleAlumni Role = "alumni"
	RoleAdmin  Role = "admin"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// House is one of the four fixed affiliation categories.
type House string

const (
	HouseAravali   House = "ARAVALI"
	HouseNilgiri   House = "NILGIRI"
	HouseShivalik  House = "SHIVALIK"
	HouseUdayagiri House = "UDAYAGIRI"
)

// Houses lists every valid House in display order.
var Houses = []House{HouseAravali, HouseNilgiri, HouseShivalik, HouseUdayagiri}

// MinBatchYear is the first batch the school ever graduated.
const MinBatchYear = 1980

// User is an alumni profile and its login identity.
//
// PasswordHash is tagged json:"-" so it can never leak through an API
// response, no matter which handler serialises the user.
type User struct {
	ID              string         `json:"id"                        bson:"_id,omitempty"`
	Name            string         `json:"name"                      bson:"name"                    validate:"required"`
	Email           string         `json:"email"                     bson:"email"                   validate:"required,alumniemail"`
	PasswordHash    string         `json:"-"                         bson:"password"                validate:"required"`
	Gender          Gender         `json:"gender"                    bson:"gender"                  validate:"required,oneof=male female"`
	BatchYear       int            `json:"batchYear"                 bson:"batchYear"               validate:"required,min=1980,notfuture"`
	PhoneNumber     string         `json:"phoneNumber,omitempty"     bson:"phoneNumber,omitempty"   validate:"omitempty,indianphone"`
	ShowPhoneNumber bool           `json:"showPhoneNumber"           bson:"showPhoneNumber"`
	House           House          `json:"house,omitempty"           bson:"house,omitempty"         validate:"omitempty,oneof=ARAVALI NILGIRI SHIVALIK UDAYAGIRI"`
	Address         string         `json:"address,omitempty"         bson:"address,omitempty"`
	ProfilePicture  string         `json:"profilePicture,omitempty"  bson:"profilePicture,omitempty"`
	Occupation      *Occupation    `json:"-"                         bson:"occupation,omitempty"`
	Participation   *Participation `json:"-"                         bson:"participation,omitempty"`
	Role            Role           `json:"role"                      bson:"role"                    validate:"required,oneof=alumni admin"`
	CreatedAt       time.Time      `json:"createdAt"                 bson:"createdAt"`
}

// IsAdmin reports whether the user passes the admin gate.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Normalize trims free-text fields and lowercases the email, matching the
// trim/lowercase behaviour the collection has always applied on write.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	u.PhoneNumber = strings.TrimSpace(u.PhoneNumber)
	u.Address = strings.TrimSpace(u.Address)
	if u.Role == "" {
		u.Role = RoleAlumni
	}
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MarshalJSON flattens the occupation and participation variants into the
// flat fields the frontend reads: occupation, occupationSubField,
// participation and customParticipation.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	out := struct {
		alias
		Occupation          string   `json:"occupation,omitempty"`
		OccupationSubField  string   `json:"occupationSubField,omitempty"`
		Participation       []string `json:"participation"`
		CustomParticipation string   `json:"customParticipation,omitempty"`
	}{alias: alias(u), Participation: []string{}}

	if u.Occupation != nil {
		out.Occupation = u.Occupation.Field
		out.OccupationSubField = u.Occupation.SubField
	}
	if u.Participation != nil {
		if u.Participation.Categories != nil {
			out.Participation = u.Participation.Categories
		}
		out.CustomParticipation = u.Participation.Custom
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON so API clients can decode the flat
// wire fields back into the variants.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	in := struct {
		*alias
		Occupation          string   `json:"occupation"`
		OccupationSubField  string   `json:"occupationSubField"`
		Participation       []string `json:"participation"`
		CustomParticipation string   `json:"customParticipation"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	u.Occupation = nil
	if in.Occupation != "" {
		u.Occupation = &Occupation{Field: in.Occupation, SubField: in.OccupationSubField}
	}
	u.Participation = nil
	if len(in.Participation) > 0 || in.CustomParticipation != "" {
		u.Participation = &Participation{Categories: in.Participation, Custom: in.CustomParticipation}
	}
	return nil
}

// UserPatch is a self-service profile update. A nil field means "leave
// unchanged".
//
// There is deliberately no Password or Role field: whatever a client sends
// for those keys is dropped when the request is decoded into a UserPatch.
type UserPatch struct {
	Name            *string        `json:"name"`
	Email           *string        `json:"email"`
	Gender          *Gender        `json:"gender"`
	BatchYear       *int           `json:"batchYear"`
	PhoneNumber     *string        `json:"phoneNumber"`
	ShowPhoneNumber *bool          `json:"showPhoneNumber"`
	House           *House         `json:"house"`
	Address         *string        `json:"address"`
	ProfilePicture  *string        `json:"profilePicture"`
	Occupation      *Occupation    `json:"-"`
	Participation   *Participation `json:"-"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Gender == nil && p.BatchYear == nil &&
		p.PhoneNumber == nil && p.ShowPhoneNumber == nil && p.House == nil &&
		p.Address == nil && p.ProfilePicture == nil && p.Occupation == nil &&
		p.Participation == nil
}

// Apply copies every non-nil field of the patch onto u and normalises the
// result. An Occupation with an empty Field clears the occupation; the same
// goes for an empty Participation.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.BatchYear != nil {
		u.BatchYear = *p.BatchYear
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.ShowPhoneNumber != nil {
		u.ShowPhoneNumber = *p.ShowPhoneNumber
	}
	if p.House != nil {
		u.House = *p.House
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.Occupation != nil {
		if p.Occupation.Field == "" {
			u.Occupation = nil
		} else {
			occ := *p.Occupation
			u.Occupation = &occ
		}
	}
	if p.Participation != nil {
		if p.Participation.IsEmpty() {
			u.Participation = nil
		} else {
			part := *p.Participation
			u.Participation = &part
		}
	}
	u.Normalize()
}

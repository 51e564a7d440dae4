package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SpotStatus is the lifecycle state of a study spot
type SpotStatus int

const (
	SpotStatusPending SpotStatus = iota
	SpotStatusActive
	SpotStatusClosed
)

// String returns the wire name of the status
func (s SpotStatus) String() string {
	switch s {
	case SpotStatusPending:
		return "pending"
	case SpotStatusActive:
		return "active"
	case SpotStatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("SpotStatus(%d)", int(s))
	}
}

// ParseSpotStatus converts a wire name into a SpotStatus
func ParseSpotStatus(v string) (SpotStatus, error) {
	switch v {
	case "pending":
		return SpotStatusPending, nil
	case "active":
		return SpotStatusActive, nil
	case "closed":
		return SpotStatusClosed, nil
	default:
		return 0, fmt.Errorf("unknown spot status %q", v)
	}
}

func (s SpotStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case SpotStatusPending, SpotStatusActive, SpotStatusClosed:
		return json.Marshal(s.String())
	default:
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
}

func (s *SpotStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("spot status must be a string: %w", err)
	}
	parsed, err := ParseSpotStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UserRole distinguishes students from business accounts
type UserRole int

const (
	UserRoleStudent UserRole = iota
	UserRoleBusiness
)

func (r UserRole) String() string {
	switch r {
	case UserRoleStudent:
		return "student"
	case UserRoleBusiness:
		return "business"
	default:
		return fmt.Sprintf("UserRole(%d)", int(r))
	}
}

// ParseUserRole converts a wire name into a UserRole
func ParseUserRole(v string) (UserRole, error) {
	switch v {
	case "student":
		return UserRoleStudent, nil
	case "business":
		return UserRoleBusiness, nil
	default:
		return 0, fmt.Errorf("unknown user role %q", v)
	}
}

func (r UserRole) MarshalJSON() ([]byte, error) {
	switch r {
	case UserRoleStudent, UserRoleBusiness:
		return json.Marshal(r.String())
	default:
		return nil, fmt.Errorf("cannot marshal %s", r)
	}
}

func (r *UserRole) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("user role must be a string: %w", err)
	}
	parsed, err := ParseUserRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents a registered user
type User struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	PasswordHash string   `json:"-"`
}

// StudySpot represents a physical study location
type StudySpot struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	PlaceID     string     `json:"place_id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Status      SpotStatus `json:"status"`
	Description *string    `json:"description,omitempty"`
}

// Review is a rating left by a user for a study spot
type Review struct {
	ID          int64     `json:"id"`
	StudySpotID int64     `json:"studyspot_id"`
	UserID      int64     `json:"user_id"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UserName    *string   `json:"user_name,omitempty"`
}

// Checkin records a user's presence at a study spot.
// A nil CheckoutTimestamp means the check-in is still open.
type Checkin struct {
	ID                int64    `json:"checkin_id"`
	StudySpotID       int64    `json:"studyspot_id"`
	UserID            int64    `json:"user_id"`
	CheckinTimestamp  float64  `json:"checkin_timestamp"`
	CheckoutTimestamp *float64 `json:"checkout_timestamp"`
}

// Open reports whether the check-in has no recorded checkout
func (c *Checkin) Open() bool {
	return c.CheckoutTimestamp == nil
}

// Photo belongs to a study spot. URL is regenerated on every read.
type Photo struct {
	ID          int64     `json:"id"`
	StudySpotID int64     `json:"-"`
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
}

// SpotAggregate is a spot joined with its average review rating
type SpotAggregate struct {
	StudySpot
	AvgRating *float64
}

// SpotResult is a study spot annotated for search responses
type SpotResult struct {
	StudySpot
	AvgRating      *float64 `json:"avg_rating"`
	DistanceKm     *float64 `json:"distance_km"`
	ActiveCheckins int      `json:"active_checkins"`
	Photos         []Photo  `json:"photos"`
}

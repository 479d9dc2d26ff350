package models

import (
	"encoding/json"
	"time"
)

// Role is the account role reported by the backend
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Category is a product category
type Category string

const (
	CategoryPhone    Category = "Phone"
	CategoryComputer Category = "Computer"
	CategoryBike     Category = "Bike"
	CategoryBook     Category = "Book"
	CategoryOthers   Category = "Others"
)

// Categories lists every category accepted by the backend, in display order.
var Categories = []Category{CategoryPhone, CategoryComputer, CategoryBike, CategoryBook, CategoryOthers}

// ProductStatus is the moderation state of a product
type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusRejected ProductStatus = "rejected"
)

// User represents the signed-in account
type User struct {
	VarsityID   string `json:"varsityId"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session pairs a user with its bearer token
type Session struct {
	User  User
	Token string
}

// Rating is a buyer's review embedded in a product
type Rating struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	BuyerName string    `json:"buyerName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (r *Rating) UnmarshalJSON(data []byte) error {
	type alias Rating
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// Product represents a marketplace listing
type Product struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Price           float64       `json:"price"`
	Category        Category      `json:"category"`
	Location        string        `json:"location"`
	Images          []string      `json:"images"`
	SellerID        string        `json:"sellerId"`
	SellerName      string        `json:"sellerName"`
	SellerVarsityID string        `json:"sellerVarsityId"`
	Status          ProductStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	Ratings         []Rating      `json:"ratings"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// AverageRating returns the mean rating and the number of ratings.
func (p Product) AverageRating() (float64, int) {
	if len(p.Ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(p.Ratings)), len(p.Ratings)
}

// RatingLabel returns the display text for a star value.
func RatingLabel(stars int) string {
	switch stars {
	case 1:
		return "Poor"
	case 2:
		return "Fair"
	case 3:
		return "Good"
	case 4:
		return "Very Good"
	case 5:
		return "Excellent"
	default:
		return "Select Rating"
	}
}

// Counterpart summarizes the other side of a conversation
type Counterpart struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VarsityID string `json:"varsityId"`
}

// LastMessage is a snapshot of the latest message in a conversation
type LastMessage struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Conversation is a chat thread with a single counterpart
type Conversation struct {
	ID          string      `json:"id"`
	User        Counterpart `json:"user"`
	LastMessage LastMessage `json:"lastMessage"`
	UnreadCount int         `json:"unreadCount"`
}

// Message is a single chat message
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"isRead"`
}

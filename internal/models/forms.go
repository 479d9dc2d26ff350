package models

// RegisterForm holds the fields submitted when creating an account
type RegisterForm struct {
	VarsityID       string `json:"varsityId" validate:"notblank"`
	FullName        string `json:"fullName" validate:"notblank"`
	Email           string `json:"email" validate:"notblank,institutional"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	PhoneNumber     string `json:"phoneNumber" validate:"omitempty,phone"`
}

// LoginForm holds login credentials
type LoginForm struct {
	Email    string `json:"email" validate:"notblank,institutional"`
	Password string `json:"password" validate:"notblank"`
}

// ProfileUpdate is a partial profile change; nil fields are left untouched
type ProfileUpdate struct {
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,phone"`
}

// ImageFile is an image attached to a product submission
type ImageFile struct {
	Name        string `validate:"notblank"`
	ContentType string
	Data        []byte `validate:"min=1"`
}

// ProductForm holds the fields of a new listing
type ProductForm struct {
	Title       string      `json:"title" validate:"notblank"`
	Description string      `json:"description" validate:"notblank"`
	Price       float64     `json:"price" validate:"gt=0"`
	Category    Category    `json:"category" validate:"oneof=Phone Computer Bike Book Others"`
	Location    string      `json:"location" validate:"notblank"`
	Images      []ImageFile `json:"images" validate:"min=1,max=2,dive"`
}

// RatingForm holds a buyer's rating before submission
type RatingForm struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"notblank"`
}

// VerificationForm pairs an email with the 6-digit code sent to it
type VerificationForm struct {
	Email string `json:"email" validate:"notblank,email"`
	Code  string `json:"code" validate:"len=6,numeric"`
}

// ForgotPasswordForm requests a password-reset code
type ForgotPasswordForm struct {
	Email string `json:"email" validate:"notblank,institutional"`
}

// ResetPasswordForm holds a new password for a verified reset code
type ResetPasswordForm struct {
	Email           string `json:"email" validate:"notblank,email"`
	Code            string `json:"code" validate:"len=6,numeric"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

package models

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a password login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest updates the current user. An empty password leaves it unchanged.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"omitempty,min=6"`
}

// ForgotPasswordRequest requests a password reset token by email
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest consumes a reset token
type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// CreateProductRequest creates a catalog product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=1000"`
	Price       *int64 `json:"price" binding:"required,min=0"`
	Brand       string `json:"brand" binding:"required,max=100"`
	Category    string `json:"category" binding:"required,max=100"`
	Stock       *int   `json:"stock" binding:"required,min=0"`
}

// UpdateProductRequest is a partial product update. Ratings are derived from reviews and not accepted here.
type UpdateProductRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Price       *int64  `json:"price" binding:"omitempty,min=0"`
	Brand       *string `json:"brand" binding:"omitempty,max=100"`
	Category    *string `json:"category" binding:"omitempty,max=100"`
	Stock       *int    `json:"stock" binding:"omitempty,min=0"`
}

// ReviewRequest creates or updates the caller's review of a product
type ReviewRequest struct {
	Rating  *int   `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"max=2000"`
}

// ShippingDetails is the delivery address shared by direct orders and checkout sessions
type ShippingDetails struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zip_code" binding:"required"`
	PhoneNo string `json:"phone_no" binding:"required"`
	Country string `json:"country" binding:"required"`
}

// OrderLineRequest is one line of a direct order
type OrderLineRequest struct {
	Product  uint   `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10000"`
	Price    *int64 `json:"price" binding:"required,min=0,max=100000000"`
}

// CreateOrderRequest creates an order directly with caller supplied prices
type CreateOrderRequest struct {
	ShippingDetails
	OrderItems []OrderLineRequest `json:"orderItems" binding:"dive"`
}

// CheckoutLineRequest is one line of a checkout session
type CheckoutLineRequest struct {
	Product  uint   `json:"product" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10000"`
	Price    *int64 `json:"price" binding:"required,min=0,max=100000000"`
}

// CheckoutSessionRequest creates a payment gateway checkout session
type CheckoutSessionRequest struct {
	ShippingDetails
	OrderItems []CheckoutLineRequest `json:"orderItems" binding:"dive"`
}

// ProcessOrderRequest sets an order status. Any value is accepted.
type ProcessOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

package entity

import "time"

// ProductRequest - полное представление товара на входе (create, PUT, элемент фида)
type ProductRequest struct {
	ID                   int64              `json:"id" validate:"required,gt=0"`
	Title                string             `json:"title" validate:"notblank,max=255"`
	Description          string             `json:"description" validate:"notblank"`
	Category             string             `json:"category" validate:"notblank,max=100"`
	Price                float64            `json:"price" validate:"gt=0"`
	DiscountPercentage   float64            `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating               float64            `json:"rating" validate:"gte=0,lte=5"`
	Stock                int                `json:"stock" validate:"gte=0"`
	Tags                 []string           `json:"tags" validate:"required,min=1,dive,notblank"`
	SKU                  string             `json:"sku" validate:"required,max=64,sku"`
	Weight               float64            `json:"weight" validate:"gt=0"`
	Dimensions           *DimensionsRequest `json:"dimensions" validate:"required"`
	WarrantyInformation  string             `json:"warrantyInformation" validate:"notblank"`
	ShippingInformation  string             `json:"shippingInformation" validate:"notblank"`
	AvailabilityStatus   string             `json:"availabilityStatus" validate:"notblank"`
	Reviews              []ReviewRequest    `json:"reviews" validate:"required,min=1,dive"`
	ReturnPolicy         string             `json:"returnPolicy" validate:"notblank"`
	MinimumOrderQuantity int                `json:"minimumOrderQuantity" validate:"gte=1"`
	Meta                 *MetaRequest       `json:"meta" validate:"required"`
	Images               []string           `json:"images" validate:"required,min=1,dive,notblank"`
	Thumbnail            string             `json:"thumbnail" validate:"notblank"`
}

// ProductPatchRequest - частичное обновление, применяются только переданные поля
type ProductPatchRequest struct {
	ID                   *int64             `json:"id" validate:"omitempty,gt=0"`
	Title                *string            `json:"title" validate:"omitempty,notblank,max=255"`
	Description          *string            `json:"description" validate:"omitempty,notblank"`
	Category             *string            `json:"category" validate:"omitempty,notblank,max=100"`
	Price                *float64           `json:"price" validate:"omitempty,gt=0"`
	DiscountPercentage   *float64           `json:"discountPercentage" validate:"omitempty,gte=0,lte=100"`
	Rating               *float64           `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Stock                *int               `json:"stock" validate:"omitempty,gte=0"`
	Tags                 *[]string          `json:"tags" validate:"omitempty,min=1,dive,notblank"`
	SKU                  *string            `json:"sku" validate:"omitempty,max=64,sku"`
	Weight               *float64           `json:"weight" validate:"omitempty,gt=0"`
	Dimensions           *DimensionsRequest `json:"dimensions" validate:"omitempty"`
	WarrantyInformation  *string            `json:"warrantyInformation" validate:"omitempty,notblank"`
	ShippingInformation  *string            `json:"shippingInformation" validate:"omitempty,notblank"`
	AvailabilityStatus   *string            `json:"availabilityStatus" validate:"omitempty,notblank"`
	Reviews              *[]ReviewRequest   `json:"reviews" validate:"omitempty,min=1,dive"`
	ReturnPolicy         *string            `json:"returnPolicy" validate:"omitempty,notblank"`
	MinimumOrderQuantity *int               `json:"minimumOrderQuantity" validate:"omitempty,gte=1"`
	Meta                 *MetaRequest       `json:"meta" validate:"omitempty"`
	Images               *[]string          `json:"images" validate:"omitempty,min=1,dive,notblank"`
	Thumbnail            *string            `json:"thumbnail" validate:"omitempty,notblank"`
}

type DimensionsRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
	Depth  float64 `json:"depth" validate:"gt=0"`
}

type MetaRequest struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Barcode   string    `json:"barcode" validate:"max=64"`
	QRCode    string    `json:"qrCode"`
}

type ReviewRequest struct {
	Rating        int       `json:"rating" validate:"min=1,max=5"`
	Comment       string    `json:"comment" validate:"notblank"`
	Date          time.Time `json:"date" validate:"required"`
	ReviewerName  string    `json:"reviewerName" validate:"notblank"`
	ReviewerEmail string    `json:"reviewerEmail" validate:"required,email"`
}

// FeedResponse - формат ответа внешнего фида товаров
type FeedResponse struct {
	Products []ProductRequest `json:"products" validate:"required,dive"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// SearchQuery - параметры GET /api/products/search
type SearchQuery struct {
	Keyword string `form:"keyword" validate:"required,max=100,keyword"`
}

// FindQuery - параметры GET /api/products/find (нужен хотя бы один)
type FindQuery struct {
	ID  *int64 `form:"id" validate:"omitempty,gt=0"`
	SKU string `form:"sku" validate:"omitempty,max=64,sku"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// IngestionResponse - сводка запуска loadProducts
type IngestionResponse struct {
	RunID         string  `json:"run_id"`
	Status        string  `json:"status"`
	Ingested      int     `json:"ingested"`
	Attempts      int     `json:"attempts"`
	ErrorKind     string  `json:"error_kind,omitempty"`
	Message       string  `json:"message,omitempty"`
	IndexFailures []int64 `json:"index_failures,omitempty"`
}

type ReindexResponse struct {
	Reindexed int `json:"reindexed"`
}

type IngestionRunListResponse struct {
	Runs  []IngestionRun `json:"runs"`
	Total int            `json:"total"`
}

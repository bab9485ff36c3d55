package entity

import "time"

// Product представляет товар в каталоге
// ID назначается вызывающей стороной и не меняется после создания, SKU уникален
type Product struct {
	ID                   int64       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title                string      `json:"title" gorm:"type:varchar(255);not null"`
	Description          string      `json:"description" gorm:"type:text;not null"`
	Category             string      `json:"category" gorm:"type:varchar(100);index"`
	Price                float64     `json:"price"`
	DiscountPercentage   float64     `json:"discountPercentage"`
	Rating               float64     `json:"rating"`
	Stock                int         `json:"stock"`
	Tags                 []string    `json:"tags" gorm:"serializer:json"`
	SKU                  string      `json:"sku" gorm:"column:sku;type:varchar(64);uniqueIndex;not null"`
	Weight               float64     `json:"weight"`
	Dimensions           *Dimensions `json:"dimensions" gorm:"embedded;embeddedPrefix:dimensions_"`
	WarrantyInformation  string      `json:"warrantyInformation"`
	ShippingInformation  string      `json:"shippingInformation"`
	AvailabilityStatus   string      `json:"availabilityStatus"`
	Reviews              []Review    `json:"reviews" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	ReturnPolicy         string      `json:"returnPolicy"`
	MinimumOrderQuantity int         `json:"minimumOrderQuantity"`
	Meta                 *Meta       `json:"meta" gorm:"embedded;embeddedPrefix:meta_"`
	Images               []string    `json:"images" gorm:"serializer:json"`
	Thumbnail            string      `json:"thumbnail"`
}

// Dimensions - габариты товара, принадлежат только своему Product
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Meta - служебные атрибуты товара
type Meta struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
	Barcode   string    `json:"barcode"`
	QRCode    string    `json:"qrCode" gorm:"column:qr_code"`
}

// Review - отзыв о товаре. Создаётся и удаляется только вместе с записью товара
type Review struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	ProductID     int64     `json:"-" gorm:"index;not null"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment" gorm:"type:text"`
	Date          time.Time `json:"date"`
	ReviewerName  string    `json:"reviewerName"`
	ReviewerEmail string    `json:"reviewerEmail"`
}

// TableName фиксирует имена таблиц независимо от NamingStrategy
func (Product) TableName() string { return "products" }

func (Review) TableName() string { return "reviews" }

// Clone возвращает глубокую копию товара
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = cloneStrings(p.Tags)
	c.Images = cloneStrings(p.Images)
	if p.Dimensions != nil {
		d := *p.Dimensions
		c.Dimensions = &d
	}
	if p.Meta != nil {
		m := *p.Meta
		c.Meta = &m
	}
	if p.Reviews != nil {
		c.Reviews = make([]Review, len(p.Reviews))
		copy(c.Reviews, p.Reviews)
	}
	return &c
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// Типы событий каталога
const (
	EventProductCreated  = "PRODUCT_CREATED"
	EventProductUpdated  = "PRODUCT_UPDATED"
	EventProductDeleted  = "PRODUCT_DELETED"
	EventCatalogIngested = "CATALOG_INGESTED"
)

// ProductEvent представляет событие изменения каталога для Kafka
type ProductEvent struct {
	EventType string    `json:"event_type"`
	ProductID int64     `json:"product_id,omitempty"`
	SKU       string    `json:"sku,omitempty"`
	Title     string    `json:"title,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Count     int       `json:"count,omitempty"` // Для CATALOG_INGESTED
	Timestamp time.Time `json:"timestamp"`
}

// Статусы запуска ingestion
const (
	IngestionStatusSuccess = "success"
	IngestionStatusFailed  = "failed"
)

// IngestionRun - запись истории одного запуска загрузки фида (MongoDB)
type IngestionRun struct {
	RunID         string    `json:"run_id" bson:"run_id"`
	Trigger       string    `json:"trigger" bson:"trigger"` // api, cron, startup
	Status        string    `json:"status" bson:"status"`
	ErrorKind     string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	Attempts      int       `json:"attempts" bson:"attempts"`
	Ingested      int       `json:"ingested" bson:"ingested"`
	IndexFailures []int64   `json:"index_failures,omitempty" bson:"index_failures,omitempty"`
	StartedAt     time.Time `json:"started_at" bson:"started_at"`
	FinishedAt    time.Time `json:"finished_at" bson:"finished_at"`
}

// CategorySummary - категория и число товаров в ней
type CategorySummary struct {
	Name     string `json:"name"`
	Products int    `json:"products"`
}

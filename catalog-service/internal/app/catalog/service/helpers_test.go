package service

import (
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
)

// Хелперы для создания тестовых данных

func newProductRequest(id int64, sku, title, description string) *entity.ProductRequest {
	date := time.Date(2024, 5, 23, 8, 56, 21, 0, time.UTC)
	return &entity.ProductRequest{
		ID:                   id,
		Title:                title,
		Description:          description,
		Category:             "beauty",
		Price:                9.99,
		DiscountPercentage:   7.17,
		Rating:               4.94,
		Stock:                5,
		Tags:                 []string{"beauty", "mascara"},
		SKU:                  sku,
		Weight:               2,
		Dimensions:           &entity.DimensionsRequest{Width: 23.17, Height: 14.43, Depth: 28.01},
		WarrantyInformation:  "1 month warranty",
		ShippingInformation:  "Ships in 1 month",
		AvailabilityStatus:   "In Stock",
		ReturnPolicy:         "30 days return policy",
		MinimumOrderQuantity: 1,
		Meta: &entity.MetaRequest{
			CreatedAt: date,
			UpdatedAt: date,
			Barcode:   "9164035109868",
			QRCode:    "https://assets.dummyjson.com/public/qr-code.png",
		},
		Reviews: []entity.ReviewRequest{{
			Rating:        5,
			Comment:       "Very satisfied!",
			Date:          date,
			ReviewerName:  "Eleanor Collins",
			ReviewerEmail: "eleanor.collins@x.dummyjson.com",
		}},
		Images:    []string{"https://cdn.dummyjson.com/products/images/1.png"},
		Thumbnail: "https://cdn.dummyjson.com/products/images/thumbnail.png",
	}
}

func newTestProduct(id int64) *entity.Product {
	return entity.ToProduct(newProductRequest(id, fmt.Sprintf("SKU-%d", id), "Lipstick", "Matte red lipstick"))
}

// threeProductFeed - фид из трёх товаров, два из которых находятся по "mascara"
func threeProductFeed() *entity.FeedResponse {
	return &entity.FeedResponse{
		Products: []entity.ProductRequest{
			*newProductRequest(1, "BEA-ESS-001", "Essence Mascara Lash Princess", "Volumizing mascara"),
			*newProductRequest(2, "BEA-EYE-002", "Eyeshadow Palette", "Palette with mirror"),
			*newProductRequest(3, "BEA-MAS-003", "Waterproof Mascara", "Long lasting mascara for every day"),
		},
		Total: 3,
		Limit: 30,
	}
}

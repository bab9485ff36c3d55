package entity

// Ручной маппинг запросов в модели. Все функции чистые и не используют reflection

// ToProduct строит новую модель товара из полного запроса
func ToProduct(req *ProductRequest) *Product {
	p := &Product{ID: req.ID}
	ApplyProductRequest(p, req)
	return p
}

// ApplyProductRequest полностью заменяет поля товара, кроме ID.
// Dimensions и Meta обновляются на месте, если уже есть, иначе создаются.
// Списки (tags, images, reviews) заменяются целиком, старые отзывы становятся сиротами
func ApplyProductRequest(p *Product, req *ProductRequest) {
	p.Title = req.Title
	p.Description = req.Description
	p.Category = req.Category
	p.Price = req.Price
	p.DiscountPercentage = req.DiscountPercentage
	p.Rating = req.Rating
	p.Stock = req.Stock
	p.Tags = cloneStrings(req.Tags)
	p.SKU = req.SKU
	p.Weight = req.Weight
	p.WarrantyInformation = req.WarrantyInformation
	p.ShippingInformation = req.ShippingInformation
	p.AvailabilityStatus = req.AvailabilityStatus
	p.ReturnPolicy = req.ReturnPolicy
	p.MinimumOrderQuantity = req.MinimumOrderQuantity
	p.Images = cloneStrings(req.Images)
	p.Thumbnail = req.Thumbnail

	if req.Dimensions != nil {
		applyDimensions(p, req.Dimensions)
	} else {
		p.Dimensions = nil
	}
	if req.Meta != nil {
		applyMeta(p, req.Meta)
	} else {
		p.Meta = nil
	}
	p.Reviews = toReviews(p.ID, req.Reviews)
}

// ApplyProductPatch применяет только переданные поля. ID не меняется
func ApplyProductPatch(p *Product, patch *ProductPatchRequest) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.DiscountPercentage != nil {
		p.DiscountPercentage = *patch.DiscountPercentage
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Tags != nil {
		p.Tags = cloneStrings(*patch.Tags)
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Dimensions != nil {
		applyDimensions(p, patch.Dimensions)
	}
	if patch.WarrantyInformation != nil {
		p.WarrantyInformation = *patch.WarrantyInformation
	}
	if patch.ShippingInformation != nil {
		p.ShippingInformation = *patch.ShippingInformation
	}
	if patch.AvailabilityStatus != nil {
		p.AvailabilityStatus = *patch.AvailabilityStatus
	}
	if patch.Reviews != nil {
		p.Reviews = toReviews(p.ID, *patch.Reviews)
	}
	if patch.ReturnPolicy != nil {
		p.ReturnPolicy = *patch.ReturnPolicy
	}
	if patch.MinimumOrderQuantity != nil {
		p.MinimumOrderQuantity = *patch.MinimumOrderQuantity
	}
	if patch.Meta != nil {
		applyMeta(p, patch.Meta)
	}
	if patch.Images != nil {
		p.Images = cloneStrings(*patch.Images)
	}
	if patch.Thumbnail != nil {
		p.Thumbnail = *patch.Thumbnail
	}
}

func applyDimensions(p *Product, req *DimensionsRequest) {
	if p.Dimensions == nil {
		p.Dimensions = &Dimensions{}
	}
	p.Dimensions.Width = req.Width
	p.Dimensions.Height = req.Height
	p.Dimensions.Depth = req.Depth
}

func applyMeta(p *Product, req *MetaRequest) {
	if p.Meta == nil {
		p.Meta = &Meta{}
	}
	p.Meta.CreatedAt = req.CreatedAt
	p.Meta.UpdatedAt = req.UpdatedAt
	p.Meta.Barcode = req.Barcode
	p.Meta.QRCode = req.QRCode
}

// toReviews создаёт новые отзывы без идентификаторов, их выдаёт репозиторий
func toReviews(productID int64, reqs []ReviewRequest) []Review {
	if reqs == nil {
		return nil
	}
	reviews := make([]Review, 0, len(reqs))
	for _, r := range reqs {
		reviews = append(reviews, Review{
			ProductID:     productID,
			Rating:        r.Rating,
			Comment:       r.Comment,
			Date:          r.Date,
			ReviewerName:  r.ReviewerName,
			ReviewerEmail: r.ReviewerEmail,
		})
	}
	return reviews
}

package catalog

import "sales_server/core/domain"

func price(v float64) *float64 { return &v }

// DemoConfig returns the showcase business used by the public demo chat.
// It is never used for a real tenant.
func DemoConfig() *domain.BusinessConfig {
	return &domain.BusinessConfig{
		Name:        "DemoShop",
		Description: "Your AI-powered sales assistant",
		WhatsApp:    "+1234567890",
		Phone:       "+15551234567",
		Products: []domain.Product{
			{
				Name:        "Black Sporty Shoes",
				Description: "Lightweight, sporty black shoes for all-day comfort.",
				Price:       price(89.99),
				ImageURL:    "/static/assets/black_sporty_shoes.jpg",
				VideoURL:    "/static/assets/black_sporty_shoes.mp4",
				Tags:        "black,sporty,shoes,sneakers,athletic,comfortable",
				Source:      domain.SourceDemo,
			},
			{
				Name:        "Red Elegant Dress",
				Description: "Elegant red dress perfect for evening events.",
				Price:       price(129.99),
				ImageURL:    "/static/assets/red_elegant_dress.jpg",
				VideoURL:    "/static/assets/red_elegant_dress.mp4",
				Tags:        "red,dress,elegant,evening,formal,stylish",
				Source:      domain.SourceDemo,
			},
			{
				Name:        "Green Urban Jacket",
				Description: "Trendy green jacket for modern street style.",
				Price:       price(112.99),
				ImageURL:    "/static/assets/green_urban_jacket.jpg",
				VideoURL:    "/static/assets/green_urban_jacket.mp4",
				Tags:        "green,jacket,urban,street,modern,casual",
				Source:      domain.SourceDemo,
			},
		},
	}
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	seedSettings(ctx, conn)
	seedCatalog(ctx, conn)
	seedCoupons(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedSettings(ctx context.Context, conn *pgx.Conn) {
	log.Println("Seeding pricing settings...")
	_, err := conn.Exec(ctx, `
		INSERT INTO pricing_settings (
			id, shipping_threshold, shipping_fee, cod_fee,
			prepaid_tier1_percent, prepaid_tier2_percent, prepaid_tier2_threshold
		) VALUES ('GLOBAL', 599, 129, 149, 5, 5, 1199)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Fatalf("Failed to seed pricing settings: %v", err)
	}
}

func seedCatalog(ctx context.Context, conn *pgx.Conn) {
	products := []struct {
		ID    string
		Name  string
		Image string
	}{
		{"prod-groundnut-oil", "Cold Pressed Groundnut Oil", "/images/groundnut-oil.webp"},
		{"prod-coconut-oil", "Cold Pressed Coconut Oil", "/images/coconut-oil.webp"},
		{"prod-sesame-oil", "Wood Pressed Sesame Oil", "/images/sesame-oil.webp"},
		{"prod-a2-ghee", "A2 Cultured Desi Ghee", "/images/a2-ghee.webp"},
		{"prod-jaggery", "Organic Jaggery Powder", "/images/jaggery.webp"},
	}

	variants := []struct {
		ID        string
		ProductID string
		Size      string
		Unit      string
		MRP       string
		Price     string
		Stock     int
	}{
		{"var-groundnut-1l", "prod-groundnut-oil", "1", "L", "550", "475", 120},
		{"var-groundnut-5l", "prod-groundnut-oil", "5", "L", "2600", "2250", 35},
		{"var-coconut-500ml", "prod-coconut-oil", "500", "ml", "420", "365", 90},
		{"var-coconut-1l", "prod-coconut-oil", "1", "L", "780", "690", 60},
		{"var-sesame-1l", "prod-sesame-oil", "1", "L", "600", "520", 75},
		{"var-ghee-500ml", "prod-a2-ghee", "500", "ml", "1450", "1299", 40},
		{"var-ghee-1l", "prod-a2-ghee", "1", "L", "2800", "2499", 25},
		{"var-jaggery-1kg", "prod-jaggery", "1", "kg", "220", "189", 200},
	}

	log.Println("Seeding products...")
	for _, p := range products {
		_, err := conn.Exec(ctx, `
			INSERT INTO products (id, name, image_url)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url`,
			p.ID, p.Name, p.Image)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.ID, err)
		}
	}

	log.Println("Seeding variants...")
	for _, v := range variants {
		_, err := conn.Exec(ctx, `
			INSERT INTO variants (id, product_id, size, unit, mrp, selling_price, stock, in_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7 > 0)
			ON CONFLICT (id) DO UPDATE SET
				mrp = EXCLUDED.mrp, selling_price = EXCLUDED.selling_price,
				stock = EXCLUDED.stock, in_stock = EXCLUDED.in_stock`,
			v.ID, v.ProductID, v.Size, v.Unit, v.MRP, v.Price, v.Stock)
		if err != nil {
			log.Printf("Failed to seed variant %s: %v", v.ID, err)
		}
	}
}

func seedCoupons(ctx context.Context, conn *pgx.Conn) {
	expiry := time.Now().AddDate(1, 0, 0)
	coupons := []struct {
		Code        string
		Kind        string
		Value       string
		MinOrder    string
		MaxDiscount *string
		UsageLimit  *int32
		PerUser     *int32
		Description string
	}{
		{"WELCOME10", "percentage", "10", "499", ptr("100"), nil, ptrInt32(1), "10% off your first order"},
		{"SAVE10", "percentage", "10", "599", ptr("80"), nil, nil, "10% off, capped"},
		{"FLAT150", "flat", "150", "999", nil, ptrInt32(500), nil, "Flat 150 off on orders above 999"},
		{"GHEE5", "percentage", "5", "0", nil, nil, nil, "5% off, no minimum"},
	}

	log.Println("Seeding coupons...")
	for _, c := range coupons {
		_, err := conn.Exec(ctx, `
			INSERT INTO coupons (code, kind, value, min_order_amount, max_discount,
				expiry_date, usage_limit, per_user_limit, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Kind, c.Value, c.MinOrder, c.MaxDiscount, expiry,
			c.UsageLimit, c.PerUser, c.Description)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}

func ptr(s string) *string { return &s }

func ptrInt32(n int32) *int32 { return &n }

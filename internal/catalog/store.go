package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedamart/backend/internal/pricing"
)

// Store reads variant rows joined with their parent product.
type Store struct {
	Pool *pgxpool.Pool
}

// VariantsByIDs resolves a batch of variant ids in one round trip. Unknown ids
// are absent from the returned map.
func (s Store) VariantsByIDs(ctx context.Context, ids []string) (map[string]pricing.Variant, error) {
	out := make(map[string]pricing.Variant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT v.id, p.name, p.image_url, v.size, v.unit,
		       v.mrp, v.selling_price,
		       (v.is_active AND p.is_active) AS is_active,
		       (v.in_stock AND v.stock > 0) AS in_stock
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v pricing.Variant
		if err := rows.Scan(&v.ID, &v.ProductName, &v.Image, &v.Size, &v.Unit,
			&v.MRP, &v.SellingPrice, &v.IsActive, &v.InStock); err != nil {
			return nil, err
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}

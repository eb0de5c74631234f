package pieceinfo

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPieceNumber marks a malformed lookup key.
var ErrInvalidPieceNumber = eris.New("piece number must be at least 3 characters")

// ErrPieceNotFound marks a piece number the hub has no inventory record for,
// or an inventory record missing the keys needed for downstream lookups.
var ErrPieceNotFound = eris.New("piece inventory data incomplete")

// VendorAddress is the flattened vendor mailing address.
type VendorAddress struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

// VendorContact holds the vendor's rep contact points.
type VendorContact struct {
	RepName           string  `json:"rep_name"`
	PrimaryRepEmail   string  `json:"primary_rep_email"`
	SecondaryRepEmail string  `json:"secondary_rep_email"`
	ExecEmail         *string `json:"exec_email"`
}

// VendorPolicies holds the vendor's return handling flags.
type VendorPolicies struct {
	SerialNumberRequired bool `json:"serial_number_required"`
	VendorReturn         bool `json:"vendor_return"`
}

// AggregatedPiece is the unified view over inventory, product, and vendor data.
type AggregatedPiece struct {
	PieceInventoryKey       string         `json:"piece_inventory_key"`
	SKU                     string         `json:"sku"`
	VendorCode              string         `json:"vendor_code"`
	WarehouseLocation       string         `json:"warehouse_location"`
	RackLocation            string         `json:"rack_location"`
	SerialNumber            string         `json:"serial_number"`
	Family                  string         `json:"family"`
	PurchaseReferenceNumber string         `json:"purchase_reference_number"`
	Description             string         `json:"description"`
	ModelNo                 string         `json:"model_no"`
	Brand                   string         `json:"brand"`
	Category                string         `json:"category"`
	Group                   string         `json:"group"`
	VendorName              string         `json:"vendor_name"`
	VendorAddress           VendorAddress  `json:"vendor_address"`
	VendorContact           VendorContact  `json:"vendor_contact"`
	VendorPolicies          VendorPolicies `json:"vendor_policies"`
}

// Service aggregates the three hub data sets for one piece number.
type Service struct {
	client Client
}

// NewService creates an aggregation service over the hub client.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// Lookup fetches and merges piece data. The inventory call is the anchor:
// its failure, or a record missing sku or vendor, fails the lookup. Product
// and vendor lookups then run concurrently and degrade gracefully, so one
// flaky upstream cannot hide the warehouse location data the floor staff
// came for.
func (s *Service) Lookup(ctx context.Context, pieceNumber string) (*AggregatedPiece, error) {
	pieceNumber = strings.TrimSpace(pieceNumber)
	if len(pieceNumber) < 3 {
		return nil, eris.Wrapf(ErrInvalidPieceNumber, "got %q", pieceNumber)
	}

	log := zap.L().With(zap.String("piece_number", pieceNumber))

	inventory, err := s.client.GetPieceInventory(ctx, pieceNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrPieceNotFound, "piece %s", pieceNumber)
		}
		return nil, eris.Wrap(err, "pieceinfo: inventory lookup")
	}
	if inventory.SKU == "" {
		return nil, eris.Wrap(ErrPieceNotFound, "sku missing from inventory record")
	}
	if inventory.Vendor == "" {
		return nil, eris.Wrap(ErrPieceNotFound, "vendor code missing from inventory record")
	}

	var (
		product *ProductMaster
		vendor  *VendorDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.client.GetProductMaster(gctx, inventory.SKU)
		if err != nil {
			log.Warn("product master lookup degraded", zap.String("sku", inventory.SKU), zap.Error(err))
			return nil
		}
		product = p
		return nil
	})
	g.Go(func() error {
		v, err := s.client.GetVendorDetails(gctx, inventory.Vendor)
		if err != nil {
			log.Warn("vendor details lookup degraded", zap.String("vendor", inventory.Vendor), zap.Error(err))
			return nil
		}
		vendor = v
		return nil
	})
	_ = g.Wait()

	if product == nil {
		product = &ProductMaster{}
	}
	if vendor == nil {
		vendor = &VendorDetails{}
	}

	key := inventory.PieceInventoryKey
	if key == "" {
		key = pieceNumber
	}

	return &AggregatedPiece{
		PieceInventoryKey:       key,
		SKU:                     inventory.SKU,
		VendorCode:              inventory.Vendor,
		WarehouseLocation:       inventory.WarehouseLocation,
		RackLocation:            inventory.RackLocation,
		SerialNumber:            inventory.SerialNumber,
		Family:                  inventory.Family,
		PurchaseReferenceNumber: inventory.PurchaseReferenceNumber,
		Description:             product.Description,
		ModelNo:                 product.ModelNo,
		Brand:                   product.Brand,
		Category:                product.Category,
		Group:                   product.Group,
		VendorName:              vendor.Name,
		VendorAddress: VendorAddress{
			AddressLine1: vendor.AddressLine1,
			AddressLine2: vendor.AddressLine2,
			City:         vendor.City,
			State:        vendor.State,
			ZipCode:      vendor.ZipCode,
		},
		VendorContact: VendorContact{
			RepName:           vendor.RepName,
			PrimaryRepEmail:   vendor.PrimaryRepEmail,
			SecondaryRepEmail: vendor.SecondaryRepEmail,
			ExecEmail:         vendor.ExecEmail,
		},
		VendorPolicies: VendorPolicies{
			SerialNumberRequired: vendor.SerialNumberRequired.Bool(),
			VendorReturn:         vendor.VendorReturn.Bool(),
		},
	}, nil
}

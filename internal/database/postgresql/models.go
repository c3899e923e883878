package postgresql

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ListingCategory string

const (
	ListingCategoryCHAIR     ListingCategory = "CHAIR"
	ListingCategoryTABLE     ListingCategory = "TABLE"
	ListingCategorySOFA      ListingCategory = "SOFA"
	ListingCategoryBED       ListingCategory = "BED"
	ListingCategoryDRESSER   ListingCategory = "DRESSER"
	ListingCategoryBOOKSHELF ListingCategory = "BOOKSHELF"
	ListingCategoryDESK      ListingCategory = "DESK"
	ListingCategoryCABINET   ListingCategory = "CABINET"
	ListingCategoryWARDROBE  ListingCategory = "WARDROBE"
	ListingCategoryOTHER     ListingCategory = "OTHER"
)

func (c *ListingCategory) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*c = ListingCategory(v)
	case []byte:
		*c = ListingCategory(v)
	default:
		return fmt.Errorf("unsupported scan type for ListingCategory: %T", value)
	}
	return nil
}

func (c ListingCategory) Valid() bool {
	switch c {
	case ListingCategoryCHAIR, ListingCategoryTABLE, ListingCategorySOFA,
		ListingCategoryBED, ListingCategoryDRESSER, ListingCategoryBOOKSHELF,
		ListingCategoryDESK, ListingCategoryCABINET, ListingCategoryWARDROBE,
		ListingCategoryOTHER:
		return true
	}
	return false
}

type NullListingCategory struct {
	ListingCategory ListingCategory
	Valid           bool
}

func (ns *NullListingCategory) Scan(value interface{}) error {
	if value == nil {
		ns.ListingCategory, ns.Valid = "", false
		return nil
	}
	switch v := value.(type) {
	case string:
		ns.ListingCategory = ListingCategory(v)
	case []byte:
		ns.ListingCategory = ListingCategory(v)
	default:
		return fmt.Errorf("unsupported scan type for NullListingCategory: %T", value)
	}
	ns.Valid = true
	return nil
}

func (ns NullListingCategory) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.ListingCategory), nil
}

type ListingCondition string

const (
	ListingConditionNewWithTags    ListingCondition = "new_with_tags"
	ListingConditionNewWithoutTags ListingCondition = "new_without_tags"
	ListingConditionLikeNew        ListingCondition = "like_new"
	ListingConditionGood           ListingCondition = "good"
	ListingConditionFair           ListingCondition = "fair"
	ListingConditionPoor           ListingCondition = "poor"
)

func (c *ListingCondition) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*c = ListingCondition(v)
	case []byte:
		*c = ListingCondition(v)
	default:
		return fmt.Errorf("unsupported scan type for ListingCondition: %T", value)
	}
	return nil
}

func (c ListingCondition) Valid() bool {
	switch c {
	case ListingConditionNewWithTags, ListingConditionNewWithoutTags,
		ListingConditionLikeNew, ListingConditionGood,
		ListingConditionFair, ListingConditionPoor:
		return true
	}
	return false
}

type NullListingCondition struct {
	ListingCondition ListingCondition
	Valid            bool
}

func (ns *NullListingCondition) Scan(value interface{}) error {
	if value == nil {
		ns.ListingCondition, ns.Valid = "", false
		return nil
	}
	switch v := value.(type) {
	case string:
		ns.ListingCondition = ListingCondition(v)
	case []byte:
		ns.ListingCondition = ListingCondition(v)
	default:
		return fmt.Errorf("unsupported scan type for NullListingCondition: %T", value)
	}
	ns.Valid = true
	return nil
}

func (ns NullListingCondition) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.ListingCondition), nil
}

type ListingStatus string

const (
	ListingStatusDraft      ListingStatus = "draft"
	ListingStatusPublished  ListingStatus = "published"
	ListingStatusInProgress ListingStatus = "in_progress"
	ListingStatusSold       ListingStatus = "sold"
)

func (s *ListingStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = ListingStatus(v)
	case []byte:
		*s = ListingStatus(v)
	default:
		return fmt.Errorf("unsupported scan type for ListingStatus: %T", value)
	}
	return nil
}

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusPublished, ListingStatusInProgress, ListingStatusSold:
		return true
	}
	return false
}

type Listing struct {
	ID             pgtype.UUID
	SellerID       pgtype.UUID
	SellerUsername string
	Title          string
	Description    string
	PriceMinUnit   pgtype.Int8
	Category       NullListingCategory
	Condition      NullListingCondition
	Status         ListingStatus
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type ListingImage struct {
	ID         pgtype.UUID
	ListingID  pgtype.UUID
	ObjectKey  string
	Position   int32
	UploadedAt pgtype.Timestamptz
}

type Comment struct {
	ID        pgtype.UUID
	ListingID pgtype.UUID
	UserID    pgtype.UUID
	Content   string
	CreatedAt pgtype.Timestamptz
}

type Purchase struct {
	ID              pgtype.UUID
	ListingID       pgtype.UUID
	BuyerID         pgtype.UUID
	PriceAtPurchase int64
	PurchasedAt     pgtype.Timestamptz
}

// UUIDString renders a pgtype.UUID in the canonical hyphenated form clients
// send and receive.
func UUIDString(id pgtype.UUID) string {
	return uuid.UUID(id.Bytes).String()
}

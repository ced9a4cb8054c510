package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"menu-api/domain"
)

// ErrNotFound is returned when the requested business does not exist.
var ErrNotFound = errors.New("not found")

// Tables reads businesses and products from Azure Table Storage.
type Tables struct {
	businessTable *aztables.Client
	productTable  *aztables.Client
}

// NewTables creates a Tables instance from the given connection string.
func NewTables(connStr, businessesTable, productsTable string) (*Tables, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Tables{
		businessTable: svc.NewClient(businessesTable),
		productTable:  svc.NewClient(productsTable),
	}, nil
}

type businessEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Image       string `json:"Image"`
	Banner      string `json:"Banner"`
	Location    string `json:"Location"`
	Phone       string `json:"Phone"`
	Website     string `json:"Website"`
	Rating      string `json:"Rating"`
}

type productEntity struct {
	aztables.Entity
	Name        string   `json:"Name"`
	Description *string  `json:"Description"`
	Price       *float64 `json:"Price"`
	Image       *string  `json:"Image"`
	IsAvailable *bool    `json:"IsAvailable"`
}

func decodeBusinessEntity(data []byte) (domain.Business, error) {
	var ent businessEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Business{}, err
	}
	return domain.Business{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Description: ent.Description,
		Image:       ent.Image,
		Banner:      ent.Banner,
		Location:    ent.Location,
		Phone:       ent.Phone,
		Website:     ent.Website,
		Rating:      ent.Rating,
	}, nil
}

func decodeProductEntity(data []byte) (domain.Product, error) {
	var ent productEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:          ent.RowKey,
		BusinessID:  ent.PartitionKey,
		Name:        ent.Name,
		Description: ent.Description,
		Price:       ent.Price,
		Image:       ent.Image,
		IsAvailable: ent.IsAvailable,
	}, nil
}

// FetchBusiness loads the business profile.
func (t *Tables) FetchBusiness(ctx context.Context, businessID string) (domain.Business, error) {
	ent, err := t.businessTable.GetEntity(ctx, businessID, businessID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Business{}, ErrNotFound
		}
		return domain.Business{}, err
	}
	return decodeBusinessEntity(ent.Value)
}

// FetchAvailableProducts lists the products of a business flagged available.
func (t *Tables) FetchAvailableProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	filter := productsFilter(businessID)
	pager := t.productTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	products := []domain.Product{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			p, err := decodeProductEntity(e)
			if err != nil {
				return nil, err
			}
			products = append(products, p)
		}
	}
	return products, nil
}

func productsFilter(businessID string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(businessID, "'", "''") + "' and IsAvailable eq true"
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

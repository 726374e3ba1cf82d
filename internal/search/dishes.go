package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/gastrodesk/internal/models"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "name":          {"type": "text"},
      "description":   {"type": "text"},
      "price":         {"type": "scaled_float", "scaling_factor": 100},
      "category_id":   {"type": "long"},
      "category_name": {"type": "text"},
      "is_active":     {"type": "boolean"}
    }
  }
}`

type dishDoc struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   uint            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	IsActive     bool            `json:"is_active"`
}

func toDoc(d models.Dish) dishDoc {
	doc := dishDoc{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		CategoryID:  d.CategoryID,
		IsActive:    d.IsActive,
	}
	if d.Category != nil {
		doc.CategoryName = d.Category.Name
	}
	return doc
}

func (doc dishDoc) dish() models.Dish {
	d := models.Dish{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		CategoryID:  doc.CategoryID,
		IsActive:    doc.IsActive,
	}
	if doc.CategoryName != "" {
		d.Category = &models.Category{ID: doc.CategoryID, Name: doc.CategoryName}
	}
	return d
}

// DishIndex keeps dishes searchable in one elasticsearch index.
type DishIndex struct {
	ES    *elasticsearch.Client
	Index string
}

// EnsureIndex creates the index with its mapping when missing.
func (x *DishIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = x.ES.Indices.Create(x.Index,
		x.ES.Indices.Create.WithContext(ctx),
		x.ES.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return checkResponse(res, "create index")
}

func (x *DishIndex) IndexDish(ctx context.Context, dish models.Dish) error {
	body, err := json.Marshal(toDoc(dish))
	if err != nil {
		return err
	}
	res, err := x.ES.Index(x.Index, bytes.NewReader(body),
		x.ES.Index.WithContext(ctx),
		x.ES.Index.WithDocumentID(strconv.FormatUint(uint64(dish.ID), 10)),
		x.ES.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index dish: %w", err)
	}
	return checkResponse(res, "index dish")
}

func (x *DishIndex) RemoveDish(ctx context.Context, id uint) error {
	res, err := x.ES.Delete(x.Index, strconv.FormatUint(uint64(id), 10),
		x.ES.Delete.WithContext(ctx),
		x.ES.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete dish")
}

// BuildQuery matches the text against name (boosted), description and
// category name with fuzzy matching.
func BuildQuery(q string, from, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "description", "category_name"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}
}

func (x *DishIndex) SearchDishes(ctx context.Context, q string, from, size int) (int64, []models.Dish, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildQuery(q, from, size)); err != nil {
		return 0, nil, err
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source dishDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	dishes := make([]models.Dish, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		dishes[i] = hit.Source.dish()
	}
	return r.Hits.Total.Value, dishes, nil
}

func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s: %s: %s", op, res.Status(), body)
	}
	return nil
}

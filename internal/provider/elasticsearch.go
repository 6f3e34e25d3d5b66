package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
)

// PlaceQuery narrows a place search. Zero fields are omitted from the query.
type PlaceQuery struct {
	Text     string
	Category string
	Center   models.Location
	RadiusKm float64
	Limit    int
}

// PlaceSearch finds candidate places in the Elasticsearch catalog, used to
// enrich a trip with nearby suggestions.
type PlaceSearch struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewPlaceSearch(client *elasticsearch.Client, index string, log logger.Logger) *PlaceSearch {
	return &PlaceSearch{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "place-search"}),
	}
}

type placeDocument struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Category            string  `json:"category"`
	Rating              float64 `json:"rating"`
	StayDurationMinutes int     `json:"stay_duration_minutes"`
	Location            struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source placeDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs the query and maps hits onto domain places. Results carry no
// member attribution or wish level; callers assign both before feeding them
// into a run.
func (s *PlaceSearch) Search(ctx context.Context, q PlaceQuery) ([]models.Place, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, apperrors.NewData(apperrors.CodeBadRequest, collectStage, err)
	}

	size := q.Limit
	if size <= 0 {
		size = 20
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, apperrors.NewExternalService("elasticsearch", collectStage, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewExternalService("elasticsearch", collectStage,
			fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewData(apperrors.CodeMalformedRow, collectStage, err)
	}

	places := make([]models.Place, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		places = append(places, models.Place{
			ID:                  doc.ID,
			Name:                doc.Name,
			Category:            doc.Category,
			Rating:              doc.Rating,
			StayDurationMinutes: doc.StayDurationMinutes,
			Location:            models.Location{Lat: doc.Location.Lat, Lng: doc.Location.Lon},
		})
	}

	s.logger.Debug("place search completed", map[string]interface{}{
		"index": s.index,
		"hits":  len(places),
	})

	return places, nil
}

func buildQuery(q PlaceQuery) map[string]interface{} {
	var must []interface{}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"name": q.Text},
		})
	}
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	var filter []interface{}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": q.Category},
		})
	}
	if q.RadiusKm > 0 && !q.Center.IsZero() {
		filter = append(filter, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%.1fkm", q.RadiusKm),
				"location": map[string]interface{}{"lat": q.Center.Lat, "lon": q.Center.Lng},
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}
}

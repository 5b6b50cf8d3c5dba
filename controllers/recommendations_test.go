package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"prismstyleapi/dbhelper"
	"prismstyleapi/models"
	"prismstyleapi/recommender"
	"prismstyleapi/services"
	"prismstyleapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendComposesOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	top := test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalitySmartCasual, "#FFFFFF")
	bottom := test.FakeGarment(db, user.ID, models.CategoryBottom, models.FormalitySmartCasual, "#1B2A4A")
	test.FakeGarment(db, user.ID, models.CategoryFootwear, models.FormalitySmartCasual, "#000000")

	param := RecommendIn{Occasion: "Brunch date"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RecommendationOut
	json.Unmarshal(rec.Body.Bytes(), &resp)

	assert.NotZero(t, resp.ID, rec.Body.String())
	assert.GreaterOrEqual(t, resp.Confidence, 50.0, rec.Body.String())
	assert.LessOrEqual(t, resp.Confidence, 95.0, rec.Body.String())
	assert.GreaterOrEqual(t, len(resp.GarmentIDs), 2, rec.Body.String())
	assert.Contains(t, resp.GarmentIDs, top.ID, rec.Body.String())
	assert.Contains(t, resp.GarmentIDs, bottom.ID, rec.Body.String())
	assert.NotEmpty(t, resp.Verdict, rec.Body.String())
	assert.NotEmpty(t, resp.Breakdown, rec.Body.String())

	var record models.RecommendationRecord
	db.First(&record, resp.ID)
	assert.Equal(t, user.ID, record.OwnerID)
	assert.Equal(t, "Brunch date", record.Occasion)
	assert.Equal(t, resp.Confidence, record.Confidence)
	assert.Nil(t, record.Liked)
}

func TestRecommendEmptyWardrobe(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	param := RecommendIn{Occasion: "Office"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RecommendationOut
	json.Unmarshal(rec.Body.Bytes(), &resp)

	assert.Equal(t, 0.0, resp.Confidence, rec.Body.String())
	assert.Contains(t, resp.StyleTags, recommender.TagNeedsMoreData, rec.Body.String())
	assert.Empty(t, resp.GarmentIDs, rec.Body.String())
}

func TestRecommendValidationError(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	param := RecommendIn{TimeOfDay: "morning"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Occasion")
}

func TestRecommendUnknownStyleRejected(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	param := RecommendIn{Occasion: "Office", Style: "grunge-core"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestRecommendMatchesRecordedLook(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	look := models.OutfitLook{
		Occasion:       "Work",
		TimeOfDay:      "morning",
		OwnerID:        user.ID,
		AnalysisStatus: "completed",
	}
	db.Create(&look)

	param := RecommendIn{Occasion: "Work", TimeOfDay: "morning"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RecommendationOut
	json.Unmarshal(rec.Body.Bytes(), &resp)

	require.NotNil(t, resp.BestLookID, rec.Body.String())
	assert.Equal(t, look.ID, *resp.BestLookID, rec.Body.String())
	assert.Equal(t, 95.0, resp.Confidence, rec.Body.String())
	assert.Contains(t, resp.StyleTags, "proven_look", rec.Body.String())
}

func TestFeedbackLiked(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	profiles := services.NewStyleProfileRepository()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, profiles, nil, nil, nil)
	user := test.FakeUser(db)

	test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalitySmartCasual, "#FFFFFF")
	test.FakeGarment(db, user.ID, models.CategoryBottom, models.FormalitySmartCasual, "#1B2A4A")

	param := RecommendIn{Occasion: "Brunch date"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recommendation RecommendationOut
	json.Unmarshal(rec.Body.Bytes(), &recommendation)
	require.NotZero(t, recommendation.ID)
	require.NotEmpty(t, recommendation.GarmentIDs)

	feedback := FeedbackIn{Liked: BoolPointer(true)}
	req = test.NewJSONAuthRequest("POST", fmt.Sprintf("/recommendations/%v/feedback", recommendation.ID), strconv.FormatUint(uint64(user.ID), 10), feedback)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var record models.RecommendationRecord
	db.First(&record, recommendation.ID)
	require.NotNil(t, record.Liked)
	assert.Equal(t, true, *record.Liked)

	// a liked outfit feeds the preference profile
	store, err := profiles.Load(db, user.ID)
	require.NoError(t, err)
	assert.Greater(t, store.SuccessRate(recommender.OccasionKey("Brunch date", "")), 0.0)
	assert.True(t, store.IsFavoriteGarment(recommendation.GarmentIDs[0]))
}

func TestFeedbackUnknownRecommendation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	feedback := FeedbackIn{Liked: BoolPointer(false)}
	req := test.NewJSONAuthRequest("POST", "/recommendations/987654/feedback", strconv.FormatUint(uint64(user.ID), 10), feedback)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestRecommendationHistory(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")
	test.FakeGarment(db, user.ID, models.CategoryBottom, models.FormalityCasual, "#1B2A4A")

	param := RecommendIn{Occasion: "Weekend walk"}
	req := test.NewJSONAuthRequest("POST", "/recommendations/recommend", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = test.NewJSONAuthRequest("GET", "/recommendations/history", strconv.FormatUint(uint64(user.ID), 10), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Recommendations []RecommendationHistoryItem `json:"recommendations"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	require.Len(t, resp.Recommendations, 1, rec.Body.String())
	assert.Equal(t, "Weekend walk", resp.Recommendations[0].Occasion)
	assert.Nil(t, resp.Recommendations[0].Liked)
}

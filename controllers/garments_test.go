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
	"prismstyleapi/services"
	"prismstyleapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGarment(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	param := CreateGarmentIn{
		Name:         "Linen shirt",
		FileName:     test.NewRefString("shirt.png"),
		Category:     "top",
		Formality:    "casual",
		PrimaryColor: "#FFFFFF",
	}
	req := test.NewJSONAuthRequest("POST", "/garments/create", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp GarmentCreatedResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	assert.Equal(t, "Linen shirt", resp.Garment.Name, resp)
	assert.Equal(t, "top", resp.Garment.Category, resp)
	assert.Equal(t, "all", resp.Garment.Season, resp)
	assert.Equal(t, fmt.Sprintf("https://fakebucketurl.com/garments/%v/shirt.png", user.ID), resp.FileUploadUrl, resp)

	var garment models.Garment
	db.First(&garment, resp.Garment.ID)
	assert.Equal(t, user.ID, garment.OwnerID)
	assert.Equal(t, "draft", garment.ImageStatus)
	assert.Equal(t, fmt.Sprintf("garments/%v/shirt.png", user.ID), *garment.ImageURL)
}

func TestCreateGarmentInvalidInput(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	// no category, no color
	param := CreateGarmentIn{
		Name:      "Mystery item",
		FileName:  test.NewRefString("item.png"),
		Formality: "casual",
	}
	req := test.NewJSONAuthRequest("POST", "/garments/create", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Category")

	var count int64
	db.Model(&models.Garment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateGarmentUnknownCategory(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	// "topcoat" starts with a valid category but is not one
	param := CreateGarmentIn{
		Name:         "Long coat",
		FileName:     test.NewRefString("coat.png"),
		Category:     "topcoat",
		Formality:    "casual",
		PrimaryColor: "#888888",
	}
	req := test.NewJSONAuthRequest("POST", "/garments/create", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Category")

	var count int64
	db.Model(&models.Garment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateGarmentUnsupportedFile(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	param := CreateGarmentIn{
		Name:         "Odd upload",
		FileName:     test.NewRefString("photo.gif"),
		Category:     "top",
		Formality:    "casual",
		PrimaryColor: "#FFFFFF",
	}
	req := test.NewJSONAuthRequest("POST", "/garments/create", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCreateGarmentFreeLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)
	limit := int32(1)
	db.Model(user).Update("enforced_garment_limit", limit)
	test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")

	param := CreateGarmentIn{
		Name:         "One too many",
		FileName:     test.NewRefString("extra.png"),
		Category:     "bottom",
		Formality:    "casual",
		PrimaryColor: "#1B2A4A",
	}
	req := test.NewJSONAuthRequest("POST", "/garments/create", strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestListGarmentsGrouped(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)

	top := test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")
	db.Model(top).Update("image_url", fmt.Sprintf("garments/%v/top.png", user.ID))
	test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalitySmartCasual, "#1B2A4A")
	test.FakeGarment(db, user.ID, models.CategoryFootwear, models.FormalityCasual, "#000000")
	hidden := test.FakeGarment(db, user.ID, models.CategoryBottom, models.FormalityCasual, "#808080")
	db.Model(hidden).Update("archived", true)

	req := test.NewJSONAuthRequest("GET", "/garments/list", strconv.FormatUint(uint64(user.ID), 10), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp GarmentsListResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	assert.Len(t, resp.Tops, 2, rec.Body.String())
	assert.Len(t, resp.Footwear, 1, rec.Body.String())
	assert.Len(t, resp.Bottoms, 0, rec.Body.String())
	assert.Len(t, resp.Dresses, 0, rec.Body.String())

	for _, item := range resp.Tops {
		if item.ID == top.ID {
			assert.Equal(t, fmt.Sprintf("https://cdn.fakecache.com/garments/%v/top.png", user.ID), *item.Uri)
		}
	}
}

func TestFavoriteGarmentUpdatesProfile(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	profiles := services.NewStyleProfileRepository()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, profiles, nil, nil, nil)
	user := test.FakeUser(db)
	garment := test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")

	param := FavoriteGarmentIn{Favorite: BoolPointer(true)}
	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/garments/%v/favorite", garment.ID), strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Garment
	db.First(&updated, garment.ID)
	assert.Equal(t, true, updated.Favorite)

	store, err := profiles.Load(db, user.ID)
	require.NoError(t, err)
	assert.True(t, store.IsFavoriteGarment(garment.ID))

	// unfavorite clears both the flag and the profile
	param = FavoriteGarmentIn{Favorite: BoolPointer(false)}
	req = test.NewJSONAuthRequest("POST", fmt.Sprintf("/garments/%v/favorite", garment.ID), strconv.FormatUint(uint64(user.ID), 10), param)
	rec = httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	store, err = profiles.Load(db, user.ID)
	require.NoError(t, err)
	assert.False(t, store.IsFavoriteGarment(garment.ID))
}

func TestFavoriteGarmentNotOwned(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)
	other := test.FakeUserV2(db, "Other", "other@prismstyle.app")
	garment := test.FakeGarment(db, other.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")

	param := FavoriteGarmentIn{Favorite: BoolPointer(true)}
	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/garments/%v/favorite", garment.ID), strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestUpdateGarment(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, services.NewStyleProfileRepository(), nil, nil, nil)
	user := test.FakeUser(db)
	garment := test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")

	param := UpdateGarmentIn{
		Name:      test.NewRefString("Renamed shirt"),
		Formality: test.NewRefString("smart_casual"),
		Material:  test.NewRefString("linen"),
	}
	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/garments/%v/update", garment.ID), strconv.FormatUint(uint64(user.ID), 10), param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Garment
	db.First(&updated, garment.ID)
	assert.Equal(t, "Renamed shirt", updated.Name)
	assert.Equal(t, models.FormalitySmartCasual, updated.Formality)
	assert.Equal(t, "linen", *updated.Material)
	// untouched fields survive
	assert.Equal(t, "#FFFFFF", updated.PrimaryColor)
}

func TestDeleteGarmentArchives(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	profiles := services.NewStyleProfileRepository()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.URLCacheMock{MockUrl: "https://cdn.fakecache.com"}, profiles, nil, nil, nil)
	user := test.FakeUser(db)
	garment := test.FakeGarment(db, user.ID, models.CategoryTop, models.FormalityCasual, "#FFFFFF")
	db.Model(garment).Update("favorite", true)

	req := test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/garments/%v", garment.ID), strconv.FormatUint(uint64(user.ID), 10), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// row stays, looks may still point at it
	var archivedGarment models.Garment
	db.First(&archivedGarment, garment.ID)
	assert.Equal(t, true, archivedGarment.Archived)
	assert.Equal(t, false, archivedGarment.Favorite)

	listReq := test.NewJSONAuthRequest("GET", "/garments/list", strconv.FormatUint(uint64(user.ID), 10), nil)
	listRec := httptest.NewRecorder()
	e.ServeHTTP(listRec, listReq)
	var resp GarmentsListResponse
	json.Unmarshal(listRec.Body.Bytes(), &resp)
	assert.Len(t, resp.Tops, 0, listRec.Body.String())
}

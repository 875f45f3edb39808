package routes

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"

	"github.com/louayabidi/projetstage-devops/models"
	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/storage"
	"github.com/louayabidi/projetstage-devops/utils"
)

// CreateBoat registers the caller's boat. Each owner can register a
// single boat; a second attempt is rejected.
func CreateBoat(boats *storage.BoatRepository, geo *services.GeoIndex) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		var input CreateBoatInput
		err := ctx.ReadJSON(&input)
		if err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}

		_, existingErr := boats.GetByOwner(claims.ID)
		if existingErr == nil {
			utils.CreateError(iris.StatusConflict, "Conflict", "You already have a registered boat.", ctx)
			return
		}
		if !errors.Is(existingErr, gorm.ErrRecordNotFound) {
			utils.CreateInternalServerError(ctx)
			return
		}

		amenities, marshalErr := json.Marshal(input.Amenities)
		if marshalErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		photos, marshalErr := json.Marshal(input.Photos)
		if marshalErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		boat := models.Boat{
			OwnerID:      claims.ID,
			Name:         input.Name,
			BoatType:     input.BoatType,
			BoatCapacity: input.BoatCapacity,
			BoatLicense:  input.BoatLicense,
			Amenities:    amenities,
			Photos:       photos,
			Lat:          input.Lat,
			Lng:          input.Lng,
		}

		if createErr := boats.Create(&boat); createErr != nil {
			utils.CreateError(iris.StatusConflict, "Conflict", "Boat license already registered.", ctx)
			return
		}

		storage.DB.Model(&models.User{}).Where("id = ?", claims.ID).
			Update("boat_info_complete", true)

		if boat.Lat != 0 || boat.Lng != 0 {
			geo.Upsert(boat.ID, boat.Lat, boat.Lng, time.Now())
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(boat)
	}
}

func GetBoats(boats *storage.BoatRepository) iris.Handler {
	return func(ctx iris.Context) {
		all, err := boats.All()
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(all)
	}
}

func GetBoat(boats *storage.BoatRepository) iris.Handler {
	return func(ctx iris.Context) {
		id, paramErr := ctx.Params().GetUint("id")
		if paramErr != nil {
			utils.CreateNotFound(ctx)
			return
		}

		boat, err := boats.Get(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.CreateNotFound(ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(boat)
	}
}

func GetMyBoat(boats *storage.BoatRepository) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		boat, err := boats.GetByOwner(claims.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.CreateNotFound(ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(boat)
	}
}

func UpdateBoat(boats *storage.BoatRepository) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		boat, err := boats.GetByOwner(claims.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.CreateNotFound(ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}

		var input UpdateBoatInput
		if readErr := ctx.ReadJSON(&input); readErr != nil {
			utils.HandleValidationErrors(readErr, ctx)
			return
		}

		if input.Name != "" {
			boat.Name = input.Name
		}
		if input.BoatType != "" {
			boat.BoatType = input.BoatType
		}
		if input.BoatCapacity > 0 {
			boat.BoatCapacity = input.BoatCapacity
		}
		if input.Amenities != nil {
			amenities, marshalErr := json.Marshal(input.Amenities)
			if marshalErr != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			boat.Amenities = amenities
		}
		if input.Photos != nil {
			photos, marshalErr := json.Marshal(input.Photos)
			if marshalErr != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			boat.Photos = photos
		}

		if saveErr := boats.Save(boat); saveErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(boat)
	}
}

// DeleteBoat removes a boat and evicts it from the live map index.
func DeleteBoat(boats *storage.BoatRepository, geo *services.GeoIndex) iris.Handler {
	return func(ctx iris.Context) {
		id, paramErr := ctx.Params().GetUint("id")
		if paramErr != nil {
			utils.CreateNotFound(ctx)
			return
		}

		boat, err := boats.Get(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.CreateNotFound(ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}

		if deleteErr := boats.Delete(boat.ID); deleteErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		geo.Remove(boat.ID)
		storage.DB.Model(&models.User{}).Where("id = ?", boat.OwnerID).
			Update("boat_info_complete", false)

		ctx.JSON(iris.Map{"success": true})
	}
}

// UpdateBoatLocation is the REST twin of the websocket location event.
func UpdateBoatLocation(hub *services.Hub) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		boatID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		var input UpdateLocationInput
		if readErr := ctx.ReadJSON(&input); readErr != nil {
			utils.HandleValidationErrors(readErr, ctx)
			return
		}

		if publishErr := hub.PublishBoatLocation(claims.ID, boatID, *input.Latitude, *input.Longitude); publishErr != nil {
			handleServiceError(publishErr, ctx)
			return
		}

		ctx.JSON(iris.Map{"success": true})
	}
}

// GetBoatLocations serves the public map snapshot from the in-memory
// geo index, optionally filtered to a radius around a point.
func GetBoatLocations(boats *storage.BoatRepository, geo *services.GeoIndex) iris.Handler {
	return func(ctx iris.Context) {
		lat, latErr := ctx.URLParamFloat64("lat")
		lng, lngErr := ctx.URLParamFloat64("lng")
		radius := ctx.URLParamFloat64Default("radius", services.DefaultMatchRadiusMeters)

		var matches []services.GeoMatch
		if latErr == nil && lngErr == nil {
			matches = geo.Query(lat, lng, radius)
		} else {
			matches = geo.All()
		}

		boatIDs := make([]uint, 0, len(matches))
		for _, match := range matches {
			boatIDs = append(boatIDs, match.BoatID)
		}

		var withMeta []models.Boat
		if len(boatIDs) > 0 {
			var err error
			withMeta, err = boats.ListByIDs(boatIDs)
			if err != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
		}
		boatsByID := make(map[uint]models.Boat, len(withMeta))
		for _, boat := range withMeta {
			boatsByID[boat.ID] = boat
		}

		locations := make([]iris.Map, 0, len(matches))
		for _, match := range matches {
			entry := iris.Map{
				"boatId":    match.BoatID,
				"latitude":  match.Lat,
				"longitude": match.Lng,
			}
			if boat, ok := boatsByID[match.BoatID]; ok {
				entry["name"] = boat.Name
				entry["boatType"] = boat.BoatType
				entry["boatCapacity"] = boat.BoatCapacity
			}
			locations = append(locations, entry)
		}

		ctx.JSON(iris.Map{"locations": locations})
	}
}

type CreateBoatInput struct {
	Name         string   `json:"name" validate:"required,max=256"`
	BoatType     string   `json:"boatType" validate:"required,max=64"`
	BoatCapacity int      `json:"boatCapacity" validate:"required,min=1"`
	BoatLicense  string   `json:"boatLicense" validate:"required,max=64"`
	Amenities    []string `json:"amenities"`
	Photos       []string `json:"photos"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
}

type UpdateBoatInput struct {
	Name         string   `json:"name"`
	BoatType     string   `json:"boatType"`
	BoatCapacity int      `json:"boatCapacity"`
	Amenities    []string `json:"amenities"`
	Photos       []string `json:"photos"`
}

type UpdateLocationInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

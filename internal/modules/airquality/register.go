package airquality

import (
	"net/http"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/controller"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service) {
	airQualityController := controller.NewAirQualityController(svc)
	airQualityController.RegisterRoutes(mux)
}

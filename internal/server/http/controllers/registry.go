package controllers

import (
	"net/http"

	"github.com/rzbill/medtrail/internal/runtime"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general  *GeneralController
	patients *PatientsController
}

// NewControllerRegistry initializes all controllers against rt.
func NewControllerRegistry(rt *runtime.Runtime, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		patients: NewPatientsController(rt, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.patients.RegisterRoutes(mux)
}

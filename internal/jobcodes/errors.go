package jobcodes

import "jobmedia/internal/services"

var errNoBackend = services.Wrap(services.ErrConfiguration, "jobcodes", "load", "no backend configured", nil)

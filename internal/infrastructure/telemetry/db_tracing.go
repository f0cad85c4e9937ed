package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// InstrumentDB registers span creation for every GORM statement.
// Query variables stay out of the spans since they carry customer data.
func (p *Provider) InstrumentDB(db *gorm.DB, dbName string) error {
	if !p.IsEnabled() {
		return nil
	}
	return db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithAttributes(attribute.String("service.component", "persistence")),
		otelgorm.WithoutQueryVariables(),
	))
}

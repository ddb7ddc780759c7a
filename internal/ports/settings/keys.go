package settings

// Keys de configuración de acceso. Centralizadas acá para que router,
// engine y jobs no repitan literales.
const (
	// Modos de verificación habilitados para niveles reserved/protected,
	// en orden fijo: "ip", "role", "idp", "email", "grant".
	KeyAccessModes = "access.modes"

	// Bypass global de embargo (bool). Default false.
	KeyEmbargoBypass = "access.embargo_bypass"

	// Nivel asignado en el backfill a recursos privados sin fila
	// de status. Default "reserved".
	KeyPrivateFallbackLevel = "access.private_fallback_level"

	// Espejo de propiedades descriptivas (bool) y sus tres campos.
	KeyPropertyMirror     = "access.property_mirror"
	KeyLevelProperty      = "access.property_level"
	KeyEmbargoStartProp   = "access.property_embargo_start"
	KeyEmbargoEndProp     = "access.property_embargo_end"
	KeyLevelPropertyValue = "access.property_level_values" // map nivel -> literal

	// Lista de reservas IP: [{"range":"10.0.0.0/8","allow":[...],"forbid":[...]}].
	KeyIPReservations = "access.ip_reservations"

	// Roles de sesión que habilitan el modo "role". Lista vacía o ausente:
	// cualquier usuario autenticado califica.
	KeyReservedRoles = "access.reserved_roles"

	// Identity providers externos aceptados por el modo "idp".
	KeyIdentityProviders = "access.identity_providers"

	// Patrones (regexp) de e-mail aceptados por el modo "email".
	KeyEmailPatterns = "access.email_patterns"

	// Políticas del sweep de embargos vencidos.
	KeySweepLevelPolicy = "access.embargo_ended_level" // free | under | keep
	KeySweepDatePolicy  = "access.embargo_ended_dates" // clear | keep
)

// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada operación (sign-in, link, búsqueda) puede llevar su
//     propio logger con campos adicionales (provider, mode, op) vía ToContext.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Salida: stderr por defecto, stdout queda libre para la salida del CLI.
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("link.orchestrator"))
//	log.Info("identity linked", logger.Provider("google"), logger.UserID(id))
//
// Nunca loguear tokens ni secretos; los emails van enmascarados con EmailMasked.
package logger

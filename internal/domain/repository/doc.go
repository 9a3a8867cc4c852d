// Package repository define el contrato con el identity store remoto.
//
// La implementación concreta vive en internal/remote/parse.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        link.Orchestrator / search.Service           │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (IdentityClient)           │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   remote/parse (REST + session token en cache)      │
//	└─────────────────────────────────────────────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los errores se devuelven ya clasificados (linkerr.Error)
package repository

// Package save defines the payload contract between the game's
// serialization layer and the persistence engine.
//
// Data is the structured form the serializer produces: identity fields, a
// version tag, opaque component records, and free-form resource and
// metadata maps. The engine stores its encoded bytes as an opaque blob
// and only reads or rewrites the version tag during migration.
package save

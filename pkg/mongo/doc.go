// Package mongo connects to MongoDB for the credential store backend.
//
// Config is read from MONGODB_* variables. New retries the initial ping;
// NewCollection goes one step further and returns the collection that
// credstore.MongoStore writes to.
package mongo

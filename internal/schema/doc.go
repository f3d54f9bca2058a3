// Package schema validates listing fields against a CUE schema.
//
// The built-in schema lives in listing.cue and defines two views of the
// same fields: #Listing for new listings (crop and price required) and
// #ListingUpdate for partial updates (everything optional). A custom schema
// file may replace it as long as it defines both.
package schema

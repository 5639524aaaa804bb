package model

// User represents a row in the `user` table.  The (Name, Age) pair is
// unique; two users may share a name as long as their ages differ.
//
// Fields:
//  ID   – primary key identifier.
//  Name – display name.
//  Age  – age in years, 12 to 110.
type User struct {
    ID   uint64 `json:"id"`   // user.id
    Name string `json:"name"` // user.name
    Age  int    `json:"age"`  // user.age
}

// MovieViewer is a user who booked a particular movie along with the
// rating they gave it, if any.
type MovieViewer struct {
    User
    Rating *int `json:"rating"` // reservation.rating (nullable)
}

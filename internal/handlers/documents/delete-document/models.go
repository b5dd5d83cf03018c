package deletedocument

type Input struct {
	DocumentID int
}

type Output struct {
	Message string `json:"message"`
}

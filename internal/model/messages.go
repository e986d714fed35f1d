package model

import "fmt"

// Messages shown around searches on every surface.
const (
	EmptyQueryMessage = "Por favor, digite um nome, CNPJ ou placa para buscar."
	NoResultsMessage  = "Nenhum resultado encontrado."
	NoDataMessage     = "Sem dados para exibir."
)

// ResultMessage is the count line shown above search results.
func ResultMessage(n int) string {
	if n == 0 {
		return NoResultsMessage
	}
	return fmt.Sprintf("%d registro(s) encontrado(s).", n)
}

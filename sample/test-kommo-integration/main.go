package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/integration/kommo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Aviso: arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	token := os.Getenv("KOMMO_API_TOKEN")
	baseURL := os.Getenv("KOMMO_BASE_URL")
	if token == "" || baseURL == "" {
		log.Fatal("❌ KOMMO_API_TOKEN e KOMMO_BASE_URL devem estar configurados no .env")
	}

	client := kommo.NewClient(baseURL, token)

	note := automation.CRMNote{
		Name:        "Joao Teste da Silva",
		Phone:       "+556199767638",
		Email:       "joao.teste@email.com",
		Action:      "lead_capture",
		Description: "Lead de teste criado pela landing page",
	}

	fmt.Println("🔄 Registrando nota no Kommo...")
	fmt.Printf("📋 Dados:\n")
	fmt.Printf("   Nome: %s\n", note.Name)
	fmt.Printf("   Telefone: %s\n", note.Phone)
	fmt.Printf("   Email: %s\n", note.Email)
	fmt.Printf("   Ação: %s\n\n", note.Action)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.AddNote(ctx, note); err != nil {
		log.Fatalf("Erro ao registrar nota no Kommo: %v", err)
	}

	fmt.Println("Nota registrada com sucesso no Kommo!")
}

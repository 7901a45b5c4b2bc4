package pattern

import (
	"github.com/Veraticus/statement-flow/internal/model"
)

// SeedRules returns the built-in system rules. Rules carry category paths
// rather than leaf ids; the caller creates the matching taxonomy.
func SeedRules() []model.Rule {
	return []model.Rule{
		seed("Interno", "AMEX - ZAHLUNG;ZAHLUNG ERHALTEN;PAGAMENTO AMEX;PAGAMENTO M&M;AMERICAN EXPRESS ZAHLUNG;DEUTSCHE KREDITBANK;LASTSCHRIFT",
			model.TypeExpense, model.Fixed, "Interno", "Transferencias", "Cartao de credito", 1000, true),
		seed("Mercado", "REWE;EDEKA;ALDI;LIDL;NETTO;NORMA;DM;DM-DROGERIE;ROSSMANN;MUELLER;MÜLLER;ASIA MARKT;BACKSTUBE;BAECKEREI;IHLE;WUENSCHE;FRUCHTWERK",
			model.TypeExpense, model.Variable, "Mercado", "Supermercado", "Supermercado", 900, true),
		seed("Receitas", "ENTGELT;SALARIO;BONUS;KINDERGELD;ARBEIT;BUNDESAGENTUR;FINANZAMT;STEUER;REEMBOLSO",
			model.TypeIncome, model.Fixed, "Receitas", "Salario", "Salario", 800, false),
		seed("Moradia", "DARLEHEN;FINANCIAMENTO;GRUNDSTEUER;FERNWARME;STROM;LICHTBLICK;VATTENFALL;WASSER;MONATSMIETE;RUNDFUNK ARD;BAYERISCHER RUNDFUNK",
			model.TypeExpense, model.Fixed, "Moradia", "Casa", "Contas da casa", 700, false),
		seed("Compras Online", "AMAZON;AMZN;AMZ*;TEMU;ZALANDO;ABOUT YOU;HM.COM;DECATHLON;MEDIAMARKT;SATURN;KLEINANZEIGEN;JYSK;HOLLISTER",
			model.TypeExpense, model.Variable, "Compras Online", "E-commerce", "E-commerce", 650, false),
		seed("Saude", "APOTHEKE;ZAHNARZT;PRAXIS;ARZT;HAUTARZT;LABOR;APOLLO OPTIK;BOTOX;COLAGENO",
			model.TypeExpense, model.Variable, "Saúde", "Medico", "Medico", 620, false),
		seed("Transporte", "TANKSTELLE;ALLGUTH;KFZ-STEUER;KFZ-VERSICHERUNG;PARKHAUS;HANDYPARKEN;MVV;TICKETSHOP;LOGPAY;VOI;UBER;99APP;LIME;TFL TRAVEL",
			model.TypeExpense, model.Variable, "Transporte", "Taxi/Apps", "Taxi/Apps", 600, false),
		seed("Lazer", "RESTAURANT;MCDONALDS;PIZZA HUT;RISTORANTE;EISCAFE;FIVE GUYS;BURGER KING;CAFE;COFFEE;PRIME VIDEO;CINEMA;ROBLOX;NETFLIX;DISNEY;SPOTIFY;YOUTUBE;APPLE.COM/BILL;GOOGLE*GOOGLE ONE",
			model.TypeExpense, model.Variable, "Lazer", "Entretenimento", "Entretenimento", 580, false),
		seed("Assinaturas", "NETFLIX;SPOTIFY;APPLE TV;DISNEY;PARAMOUNT;AMAZON PRIM;AUDIBLE;OPENAI;CHATGPT;CLAUDE.AI;FIGMA;CANVA;CAPCUT;GOOGLE*GOOGLE ONE;YOUTUBE PREMIU",
			model.TypeExpense, model.Fixed, "Lazer", "Streaming", "Streaming", 570, false),
		seed("Outros", "DEVK;AOK;VERSICHERUNG;ZINSBELASTUNG;ENTGELTABSCHLUSS;KARTENPREIS;1,95%;ING-DIBA;RAHMENKREDIT;FRESSNAPF;FUTALIS;WISE;WESTERN UNION;WAHRUNGSUMRECHN",
			model.TypeExpense, model.Variable, "Outros", "Outros", "Outros", model.DefaultRulePriority, false),
	}
}

func seed(name, keywords string, typ model.TransactionType, fixVar model.FixVar, c1, c2, c3 string, priority int, strict bool) model.Rule {
	return model.Rule{
		Name:      name,
		Keywords:  keywords,
		Type:      typ,
		FixVar:    fixVar,
		Category1: c1,
		Category2: c2,
		Category3: c3,
		Priority:  priority,
		Strict:    strict,
		IsSystem:  true,
		Active:    true,
	}
}

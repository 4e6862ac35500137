package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finsync/internal/app"
	"finsync/internal/config"
	"finsync/internal/domain"
	"finsync/internal/linking"
	"finsync/internal/prompt"
	"finsync/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if os.Getenv("FINSYNC_DEBUG") != "" {
		logger = zap.NewExample()
	}
	defer logger.Sync()

	client := app.New(cfg, app.Options{Logger: logger})
	defer client.Close()

	u := newUI(client, os.Stdin, os.Stdout)
	if err := u.run(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Fatal(err)
	}
}

// ui es el colaborador de presentación: pide credenciales cuando la sesión lo
// indica y muestra las vistas derivadas de los caches.
type ui struct {
	client    *app.Client
	in        io.Reader
	reader    *bufio.Reader
	out       io.Writer
	needLogin atomic.Bool
}

func newUI(client *app.Client, in io.Reader, out io.Writer) *ui {
	u := &ui{client: client, in: in, reader: bufio.NewReader(in), out: out}
	client.Session.Subscribe(func(t session.Transition) {
		if t.PromptLogin {
			u.needLogin.Store(true)
		}
	})
	return u
}

func (u *ui) run(ctx context.Context) error {
	if err := u.client.Start(ctx); err != nil {
		fmt.Fprintf(u.out, "No se pudo recuperar la sesión: %v\n", err)
	}
	if !u.client.Session.Authenticated() {
		u.needLogin.Store(true)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if u.needLogin.Load() && !u.client.Session.Authenticated() {
			if err := u.loginFlow(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return err
				}
				fmt.Fprintf(u.out, "Error de login: %v\n", err)
				continue
			}
		}
		u.needLogin.Store(false)
		u.client.Wait()

		fmt.Fprintln(u.out, "\n===== finsync =====")
		fmt.Fprintln(u.out, "[1] Resumen de cuentas")
		fmt.Fprintln(u.out, "[2] Transacciones")
		fmt.Fprintln(u.out, "[3] Presupuestos por categoría")
		fmt.Fprintln(u.out, "[4] Editar transacción")
		fmt.Fprintln(u.out, "[5] Vincular cuenta")
		fmt.Fprintln(u.out, "[6] Refrescar")
		fmt.Fprintln(u.out, "[7] Cerrar sesión")
		fmt.Fprintln(u.out, "[8] Salir")
		fmt.Fprint(u.out, "Selecciona una opcion: ")

		choice, err := prompt.Line(u.reader)
		if err != nil {
			return err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			u.showAccounts()
		case "2":
			if err := u.transactionsFlow(); err != nil {
				return err
			}
		case "3":
			u.showBudgets()
		case "4":
			if err := u.editFlow(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return err
				}
				fmt.Fprintf(u.out, "Error editando transacción: %v\n", err)
			}
		case "5":
			if err := u.linkFlow(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return err
				}
				fmt.Fprintf(u.out, "Error vinculando cuenta: %v\n", err)
			}
		case "6":
			if err := u.client.RefreshAll(ctx); err != nil {
				fmt.Fprintf(u.out, "Error refrescando: %v\n", err)
			}
		case "7":
			u.client.Session.Logout()
		case "8":
			return nil
		default:
			fmt.Fprintln(u.out, "Opcion invalida.")
		}
	}
}

func (u *ui) loginFlow(ctx context.Context) error {
	fmt.Fprintln(u.out, "\n--- Iniciar sesión ---")
	fmt.Fprint(u.out, "Email: ")
	email, err := prompt.Line(u.reader)
	if err != nil {
		return err
	}
	fmt.Fprint(u.out, "Contraseña: ")
	password, err := prompt.Password(u.in, u.reader)
	if err != nil {
		return err
	}
	fmt.Fprintln(u.out)

	sess, err := u.client.Session.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	fmt.Fprintf(u.out, "Sesión iniciada (vence %s)\n", sess.ExpiresAt.Local().Format("15:04"))
	return nil
}

func (u *ui) showAccounts() {
	resp, loading := u.client.Accounts.Accounts()
	if resp == nil {
		if loading {
			fmt.Fprintln(u.out, "Cargando cuentas...")
		} else {
			fmt.Fprintln(u.out, "No hay cuentas cargadas.")
		}
		return
	}
	printPartition(u.out, "Débito", resp.Debit)
	printPartition(u.out, "Crédito", resp.Credit)

	summary, _ := u.client.Accounts.Summary()
	fmt.Fprintln(u.out, "\n--- Resumen ---")
	fmt.Fprintf(u.out, "Patrimonio neto:      %s\n", money(summary.NetWorth))
	fmt.Fprintf(u.out, "Límite de crédito:    %s\n", money(summary.TotalCreditLimit))
	fmt.Fprintf(u.out, "Crédito usado:        %s\n", money(summary.UsedCredit))
	fmt.Fprintf(u.out, "Utilización:          %s%%\n", summary.CreditUtilization.StringFixed(2))
	fmt.Fprintf(u.out, "Liquidez:             %s%%\n", summary.Liquidity.StringFixed(2))
}

func printPartition(out io.Writer, title string, p domain.AccountPartition) {
	fmt.Fprintf(out, "\n%s (contable %s, disponible %s)\n", title, money(p.TotalLedger), money(p.TotalAvailable))
	for _, acc := range p.Accounts {
		fmt.Fprintf(out, "  %-20s ****%s  %12s  %12s\n",
			acc.Details.Name, acc.Details.LastFour, money(acc.Balances.Ledger), money(acc.Balances.Available))
	}
}

func (u *ui) transactionsFlow() error {
	txs := u.client.Transactions
	for {
		page := txs.CurrentPage()
		fmt.Fprintf(u.out, "\n--- Transacciones (página %d de %d) ---\n", page, txs.TotalPages())
		for _, tx := range txs.Paginated() {
			fmt.Fprintf(u.out, "  %s  %-28s %12s  %-14s %s  [%s]\n",
				tx.Date, tx.Description, money(tx.Amount), tx.CategoryOrDefault(), tx.Status, tx.ID)
		}
		fmt.Fprint(u.out, "[n] siguiente, [p] anterior, número de página, [q] volver: ")
		line, err := prompt.Line(u.reader)
		if err != nil {
			return err
		}
		switch line = strings.TrimSpace(line); line {
		case "n":
			if page < txs.TotalPages() {
				txs.SetCurrentPage(page + 1)
			}
		case "p":
			if page > 1 {
				txs.SetCurrentPage(page - 1)
			}
		case "q", "":
			return nil
		default:
			n, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintln(u.out, "Opcion invalida.")
				continue
			}
			txs.SetCurrentPage(n)
		}
	}
}

func (u *ui) showBudgets() {
	totals := u.client.Transactions.CategoryTotals()
	if len(totals) == 0 {
		fmt.Fprintln(u.out, "No hay transacciones para presupuestar.")
		return
	}
	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	fmt.Fprintln(u.out, "\n--- Gasto por categoría (sin transferencias) ---")
	for _, c := range categories {
		fmt.Fprintf(u.out, "  %-18s %12s\n", c, money(totals[c]))
	}
	fmt.Fprintf(u.out, "  %-18s %12s\n", "Total", money(u.client.Transactions.TotalSpending()))
}

func (u *ui) editFlow(ctx context.Context) error {
	fmt.Fprint(u.out, "ID de la transacción: ")
	id, err := prompt.Line(u.reader)
	if err != nil {
		return err
	}
	tx, ok := u.client.Transactions.TransactionByID(strings.TrimSpace(id))
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}

	edited := tx
	fields := []struct {
		label string
		apply func(string) error
	}{
		{"Descripción [" + tx.Description + "]", func(v string) error { edited.Description = v; return nil }},
		{"Fecha [" + tx.Date + "]", func(v string) error { edited.Date = v; return nil }},
		{"Monto [" + tx.Amount.String() + "]", func(v string) error {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			edited.Amount = d
			return nil
		}},
		{"Categoría [" + tx.CategoryOrDefault() + "]", func(v string) error { edited.Details.Category = v; return nil }},
	}
	for _, f := range fields {
		fmt.Fprintf(u.out, "%s: ", f.label)
		v, err := prompt.Line(u.reader)
		if err != nil {
			return err
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if err := f.apply(v); err != nil {
			return err
		}
	}

	patch, err := u.client.Transactions.EditTransaction(ctx, edited)
	if errors.Is(err, domain.ErrEmptyPatch) {
		fmt.Fprintln(u.out, "Sin cambios.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(u.out, "Transacción actualizada (%d campos).\n", len(patch))
	return nil
}

// linkFlow recibe a mano los datos que entregaría el widget de vinculación.
func (u *ui) linkFlow(ctx context.Context) error {
	if appID, err := u.client.Linker.ApplicationID(); err == nil {
		fmt.Fprintf(u.out, "Completa el widget de vinculación con application id %s y copia los datos.\n", appID)
	} else {
		fmt.Fprintln(u.out, "LINK_APPLICATION_ID no está configurado; ingresa los datos de la enrollment a mano.")
	}
	values := make([]string, 4)
	labels := []string{"Access token", "Enrollment ID", "Institution ID", "Institution name"}
	for i, label := range labels {
		fmt.Fprintf(u.out, "%s: ", label)
		v, err := prompt.Line(u.reader)
		if err != nil {
			return err
		}
		values[i] = strings.TrimSpace(v)
	}

	link, err := u.client.Linker.OnSuccess(ctx, linking.Enrollment{
		AccessToken: values[0],
		ID:          values[1],
		Institution: domain.Institution{ID: values[2], Name: values[3]},
		UserID:      u.client.Session.Snapshot().Subject,
	})
	if link != nil {
		fmt.Fprintf(u.out, "Cuenta vinculada (%s).\n", link.ID)
	}
	return err
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

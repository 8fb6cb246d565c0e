package notify

import (
	"fmt"
	"strings"

	"github.com/pastelecana/pastelaria/internal/types/order"
)

// BuildConfirmation renders the operational confirmation email for a settled
// order. The staff recipient prepares the order from this message alone, so
// it carries the full snapshot: items, delivery details, totals and the
// gateway payment id.
func BuildConfirmation(o *order.Order, from, to string) *Message {
	var items strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&items, "<li>%s (x%d) - R$ %s cada</li>\n", it.Name, it.Quantity, it.UnitPrice.StringFixed(2))
	}

	method := "Cartão de Crédito/Débito (Mercado Pago)"
	if o.PaymentMethod == "pix" {
		method = "PIX"
	}

	html := fmt.Sprintf(`<h1>Novo Pedido Recebido!</h1>
<p>Um novo pedido foi finalizado com sucesso em %s.</p>
<p><strong>ID do Pagamento (Mercado Pago):</strong> %s</p>

<h2>Detalhes do Cliente:</h2>
<p><strong>Nome:</strong> %s</p>
<p><strong>E-mail:</strong> %s</p>

<h2>Detalhes da Entrega:</h2>
<p><strong>Endereço:</strong> %s, %s, %s, %s - %s</p>
<p><strong>Taxa de Entrega:</strong> R$ %s</p>

<h2>Itens do Pedido:</h2>
<ul>
%s</ul>

<h2>Resumo do Pagamento:</h2>
<p><strong>Subtotal dos Itens:</strong> R$ %s</p>
<p><strong>Taxa de Entrega:</strong> R$ %s</p>
<p><strong>Total Geral:</strong> R$ %s</p>
<p><strong>Método de Pagamento:</strong> %s</p>

<p>Por favor, prepare o pedido e organize a entrega.</p>
<p>Atenciosamente,<br>Sua Pastelaria Pastel &amp; Cana</p>`,
		o.CreatedAt.Format("02/01/2006 15:04:05"),
		o.PaymentID,
		o.Payer.Name,
		o.Payer.Email,
		o.Delivery.Address, o.Delivery.Number, o.Delivery.Neighborhood, o.Delivery.City, o.Delivery.ZipCode,
		o.DeliveryFee.StringFixed(2),
		items.String(),
		o.Subtotal.StringFixed(2),
		o.DeliveryFee.StringFixed(2),
		o.Total.StringFixed(2),
		method,
	)

	return &Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("Novo Pedido Recebido - #%s (MP ID: %s)", o.ID, o.PaymentID),
		HTML:    html,
	}
}

package legacy

// itemQuery joins one item with its order lines, cargos, cargo types and
// warehouse. LEFT JOINs keep items that have no orders or shipments yet.
const itemQuery = `
SELECT i.id, i.name, i.code, i.image_url,
       w.name, w.code,
       ol.id, ol.quantity,
       c.cargo_number, c.quantity, c.status, c.remark,
       c.pickup_date, c.departure_date, c.eta,
       ct.name
FROM items i
LEFT JOIN warehouses w ON w.id = i.warehouse_id
LEFT JOIN order_lines ol ON ol.item_id = i.id
LEFT JOIN cargos c ON c.order_line_id = ol.id
LEFT JOIN cargo_types ct ON ct.id = c.cargo_type_id
WHERE i.id = $1
ORDER BY ol.id, c.id`
